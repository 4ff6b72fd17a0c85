package domain

import "context"

// ProviderClient is the boundary to one OIDC provider family. Implementations
// exist per family (Google, Entra ID, Keycloak); all are selected once at
// startup and are read-only afterwards.
//
// DecodeAccess is local cryptographic verification only. ExchangeCode and
// ExchangeRefresh cross the network and honor context cancellation.
type ProviderClient interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*Credentials, error)
	DecodeAccess(ctx context.Context, accessToken string) (Claims, error)
	ExchangeRefresh(ctx context.Context, refreshToken string) (*Credentials, error)
}

// TokenIssuer mints signed tokens for upstream services from resolved claims.
type TokenIssuer interface {
	IssueUpstreamToken(claims Claims) (string, error)
}

// StateCodec issues and verifies the OAuth2 state parameter carried through
// the login round-trip.
type StateCodec interface {
	Issue() (string, error)
	Verify(state string) error
}
