// Package contract holds the OpenAPI description of the backend endpoints
// nexora calls and validates requests against it.
package contract

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var document []byte

// Validator checks requests against the embedded OpenAPI document.
type Validator struct {
	doc *openapi3.T
}

// Operation is one method and path template from the document.
type Operation struct {
	Method string `json:"method" yaml:"method"`
	Path   string `json:"path" yaml:"path"`
	ID     string `json:"operation_id" yaml:"operation_id"`
}

// New loads and validates the embedded document.
func New() (*Validator, error) {
	return Load(document)
}

// Load builds a validator from raw OpenAPI YAML or JSON.
func Load(data []byte) (*Validator, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}

	return &Validator{doc: doc}, nil
}

// MustNew is New for package-level wiring in tests and fakes.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks method, path and JSON body. path is relative to the API
// base URL and may carry a query string.
func (v *Validator) Validate(method, path string, body []byte) error {
	rawQuery := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, rawQuery = path[:i], path[i+1:]
	}

	template, item, params := v.match(path)
	if item == nil {
		return fmt.Errorf("unknown path %s", path)
	}

	method = strings.ToUpper(method)
	op := item.GetOperation(method)
	if op == nil {
		return fmt.Errorf("method %s not allowed on %s", method, template)
	}

	declared := append(openapi3.Parameters{}, item.Parameters...)
	declared = append(declared, op.Parameters...)

	for name, value := range params {
		if err := checkPathParam(declared, name, value); err != nil {
			return fmt.Errorf("%s %s: %w", method, template, err)
		}
	}

	if rawQuery != "" {
		query, err := url.ParseQuery(rawQuery)
		if err != nil {
			return fmt.Errorf("%s %s: malformed query: %w", method, template, err)
		}
		if err := checkQuery(declared, query); err != nil {
			return fmt.Errorf("%s %s: %w", method, template, err)
		}
	}

	if err := checkBody(op, body); err != nil {
		return fmt.Errorf("%s %s: %w", method, template, err)
	}
	return nil
}

// Operations lists every operation sorted by path then method.
func (v *Validator) Operations() []Operation {
	var ops []Operation
	for path, item := range v.doc.Paths.Map() {
		for method, op := range item.Operations() {
			ops = append(ops, Operation{Method: method, Path: path, ID: op.OperationID})
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return ops[i].Method < ops[j].Method
	})
	return ops
}

// Middleware rejects requests that violate the contract with 422 before
// they reach next. prefix is stripped from the URL path first, e.g. "/api".
func (v *Validator) Middleware(prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body []byte
			if r.Body != nil {
				var err error
				body, err = io.ReadAll(r.Body)
				if err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			path := strings.TrimPrefix(r.URL.Path, prefix)
			if r.URL.RawQuery != "" {
				path += "?" + r.URL.RawQuery
			}

			if err := v.Validate(r.Method, path, body); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnprocessableEntity)
				_ = json.NewEncoder(w).Encode(map[string]string{"detail": "contract violation: " + err.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// match finds the path template for path. Literal segments beat parameters,
// so /admin/questions/reorder/ does not resolve to /admin/questions/{id}/.
func (v *Validator) match(path string) (string, *openapi3.PathItem, map[string]string) {
	if item := v.doc.Paths.Value(path); item != nil {
		return path, item, nil
	}

	pathParts := strings.Split(strings.Trim(path, "/"), "/")

	var (
		bestTemplate string
		bestItem     *openapi3.PathItem
		bestParams   map[string]string
		bestScore    = -1
	)
	for template, item := range v.doc.Paths.Map() {
		params, ok := matchSegments(strings.Split(strings.Trim(template, "/"), "/"), pathParts)
		if !ok {
			continue
		}
		score := len(pathParts) - len(params)
		if score > bestScore || (score == bestScore && template < bestTemplate) {
			bestTemplate, bestItem, bestParams, bestScore = template, item, params, score
		}
	}
	return bestTemplate, bestItem, bestParams
}

// matchSegments compares template segments with path segments, collecting
// {param} values.
func matchSegments(templateParts, pathParts []string) (map[string]string, bool) {
	if len(templateParts) != len(pathParts) {
		return nil, false
	}

	params := map[string]string{}
	for i, part := range templateParts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			if pathParts[i] == "" {
				return nil, false
			}
			params[part[1:len(part)-1]] = pathParts[i]
			continue
		}
		if part != pathParts[i] {
			return nil, false
		}
	}
	return params, true
}

func findParam(params openapi3.Parameters, in, name string) *openapi3.Parameter {
	for _, ref := range params {
		if ref == nil || ref.Value == nil {
			continue
		}
		if ref.Value.In == in && ref.Value.Name == name {
			return ref.Value
		}
	}
	return nil
}

func checkPathParam(params openapi3.Parameters, name, value string) error {
	p := findParam(params, openapi3.ParameterInPath, name)
	if p == nil || p.Schema == nil || p.Schema.Value == nil {
		return nil
	}

	schema := p.Schema.Value
	var decoded any = value
	if schema.Type.Is(openapi3.TypeInteger) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("path parameter %s must be an integer, got %q", name, value)
		}
		decoded = float64(n)
	}
	if err := schema.VisitJSON(decoded); err != nil {
		return fmt.Errorf("path parameter %s: %w", name, err)
	}
	return nil
}

func checkQuery(params openapi3.Parameters, query url.Values) error {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		p := findParam(params, openapi3.ParameterInQuery, name)
		if p == nil {
			return fmt.Errorf("unknown query parameter %s", name)
		}
		if p.Schema == nil || p.Schema.Value == nil {
			continue
		}
		for _, value := range query[name] {
			if err := p.Schema.Value.VisitJSON(value); err != nil {
				return fmt.Errorf("query parameter %s: %w", name, err)
			}
		}
	}
	return nil
}

func checkBody(op *openapi3.Operation, body []byte) error {
	empty := len(bytes.TrimSpace(body)) == 0

	if op.RequestBody == nil || op.RequestBody.Value == nil {
		if !empty {
			return fmt.Errorf("operation takes no request body")
		}
		return nil
	}

	rb := op.RequestBody.Value
	if empty {
		if rb.Required {
			return fmt.Errorf("request body is required")
		}
		return nil
	}

	media := rb.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("request body is not JSON: %w", err)
	}
	if err := media.Schema.Value.VisitJSON(decoded); err != nil {
		return fmt.Errorf("request body: %w", err)
	}
	return nil
}
