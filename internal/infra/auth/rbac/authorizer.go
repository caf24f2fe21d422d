// Package rbac maps the platform roles (student, teacher, admin) onto the
// staff actions the API exposes. An optional policy engine gets the final
// word after the role check passes.
package rbac

import (
	"context"
	"errors"

	"learntrust/internal/domain"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Actions checked by the HTTP layer. Watch event submission and streaming are
// gated by capability tokens instead and never pass through here.
const (
	ActionLogsExport   = "logs:export"
	ActionHeatmapRead  = "heatmap:read"
	ActionLedgerVerify = "ledger:verify"
	ActionMediaPackage = "media:package"
)

type AuthzError struct {
	Code string
	Err  error
}

func (e *AuthzError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code
}

func (e *AuthzError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func IsAuthzError(err error) (*AuthzError, bool) {
	var authz *AuthzError
	if errors.As(err, &authz) {
		return authz, true
	}
	return nil, false
}

// PolicyEvaluator is the optional Rego hook. A nil evaluator means role
// checks alone decide.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyResult, error)
}

type Authorizer struct {
	policy PolicyEvaluator
}

func NewAuthorizer(policy PolicyEvaluator) *Authorizer {
	return &Authorizer{policy: policy}
}

var staffActions = map[string]struct{}{
	ActionLogsExport:   {},
	ActionHeatmapRead:  {},
	ActionLedgerVerify: {},
	ActionMediaPackage: {},
}

func (a *Authorizer) Require(ctx context.Context, principal domain.Principal, action, resourceID string) error {
	if principal.Subject == "" {
		return domain.ErrUnauthorized
	}
	if action == "" {
		return nil
	}
	if _, ok := staffActions[action]; ok && !hasAnyRole(principal, RoleTeacher, RoleAdmin) {
		return &AuthzError{Code: "MISSING_ROLE", Err: domain.ErrForbidden}
	}
	if a.policy != nil {
		result, err := a.policy.Evaluate(ctx, domain.PolicyInput{
			Subject:  principal.Subject,
			Roles:    principal.Roles,
			Action:   action,
			Resource: resourceID,
		})
		if err != nil {
			return err
		}
		if !result.Allow {
			return &AuthzError{Code: "POLICY_DENY", Err: domain.ErrForbidden}
		}
	}
	return nil
}

func hasAnyRole(principal domain.Principal, roles ...string) bool {
	for _, want := range roles {
		for _, have := range principal.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
