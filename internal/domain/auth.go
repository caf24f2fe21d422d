package domain

import "context"

// Principal is the authenticated caller of an API endpoint. Streaming
// capability tokens are a separate, narrower credential (see infra/token).
type Principal struct {
	Subject string
	Roles   []string
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

// Authorizer decides whether a principal may perform a named staff action
// such as "logs:export" or "heatmap:read".
type Authorizer interface {
	Require(ctx context.Context, principal Principal, action, resourceID string) error
}
