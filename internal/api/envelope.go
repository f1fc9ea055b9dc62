package api

// Envelope is the {detail, data} wrapper used by the project endpoints.
type Envelope[T any] struct {
	Detail string `json:"detail,omitempty"`
	Data   T      `json:"data"`
}

// Page is the {results, count} wrapper used by admin list endpoints.
type Page[T any] struct {
	Results []T `json:"results"`
	Count   int `json:"count"`
}
