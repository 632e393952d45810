package security

import "context"

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is the caller a request acts for.
type Principal struct {
	Subject       string
	Roles         []string
	Authenticated bool
	// Trusted is used when authentication is switched off: the caller passes
	// every role and authentication check, but deny_all still applies.
	Trusted bool
}

func Anonymous() Principal {
	return Principal{}
}

func TrustedPrincipal() Principal {
	return Principal{Subject: "system", Authenticated: true, Trusted: true}
}

func (p Principal) IsInRole(role string) bool {
	if p.Trusted {
		return true
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) isInAnyRole(roles []string) bool {
	for _, r := range roles {
		if p.IsInRole(r) {
			return true
		}
	}
	return false
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// FromContext returns the request principal, or an anonymous one.
func FromContext(ctx context.Context) Principal {
	p, ok := ctx.Value(principalContextKey).(Principal)
	if !ok {
		return Anonymous()
	}
	return p
}
