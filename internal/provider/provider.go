// internal/provider/provider.go
package provider

import "context"

// TokenPair is the result of a refresh grant.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // seconds
}

// EmailProvider is the transport boundary. Implementations classify failures
// as AuthError or TransportError from the errors package so the dispatcher
// can bound its retry to the single refresh case.
type EmailProvider interface {
	SendEmail(ctx context.Context, token, from, to, subject, body string) error
	ValidateToken(ctx context.Context, token string) (bool, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
}
