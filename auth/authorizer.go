package auth

import (
	"context"
	"fmt"
	"slices"
)

// Actions the gateway authorizes.
const (
	ActionLookup       = "lookup"
	ActionSearch       = "search"
	ActionIntelligence = "intelligence"
)

// Authorizer determines if an identity is allowed to perform an action.
type Authorizer interface {
	// Authorize returns nil if permitted, or an error matching ErrForbidden.
	Authorize(ctx context.Context, subject *Identity, action string) error

	// Name returns a unique identifier for this authorizer.
	Name() string
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	Subject string
	Action  string
	Reason  string
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("auth: access denied: subject=%q action=%q reason=%q",
		e.Subject, e.Action, e.Reason)
}

// Is reports whether this error matches the target.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// AllowAllAuthorizer permits all requests.
type AllowAllAuthorizer struct{}

// Authorize always returns nil (permitted).
func (AllowAllAuthorizer) Authorize(context.Context, *Identity, string) error {
	return nil
}

// Name returns "allow_all".
func (AllowAllAuthorizer) Name() string {
	return "allow_all"
}

// RoleAuthorizer restricts actions to identities holding one of the listed
// roles. Actions absent from the map are open to every identity.
type RoleAuthorizer struct {
	required map[string][]string
}

// NewRoleAuthorizer creates an authorizer from action to permitted roles.
func NewRoleAuthorizer(required map[string][]string) *RoleAuthorizer {
	return &RoleAuthorizer{required: required}
}

// Name returns "roles".
func (a *RoleAuthorizer) Name() string {
	return "roles"
}

// Authorize checks subject's roles against action.
func (a *RoleAuthorizer) Authorize(_ context.Context, subject *Identity, action string) error {
	roles, restricted := a.required[action]
	if !restricted {
		return nil
	}

	if subject == nil {
		return &AuthzError{Action: action, Reason: "no identity"}
	}
	if slices.ContainsFunc(roles, subject.HasRole) {
		return nil
	}
	return &AuthzError{
		Subject: subject.Principal,
		Action:  action,
		Reason:  fmt.Sprintf("requires one of %v", roles),
	}
}

var (
	_ Authorizer = AllowAllAuthorizer{}
	_ Authorizer = (*RoleAuthorizer)(nil)
)
