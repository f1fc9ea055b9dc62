package api

import "context"

// CredentialSource supplies the auth token for each request. An empty token
// sends the request unauthenticated.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticCredentials is a fixed token.
type StaticCredentials string

// Token implements CredentialSource.
func (s StaticCredentials) Token(context.Context) (string, error) {
	return string(s), nil
}

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func(ctx context.Context) (string, error)

// Token implements CredentialSource.
func (f CredentialFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}
