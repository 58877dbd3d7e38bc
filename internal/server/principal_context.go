package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jacksonlee411/assetdesk/pkg/authz"
)

// RoleHeader carries the caller's role. Authentication happens upstream (a
// reverse proxy or gateway); this service only authorizes.
const RoleHeader = "X-Assetdesk-Role"

type Principal struct {
	RoleSlug string
}

type principalContextKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

func currentPrincipal(ctx context.Context) (Principal, bool) {
	v := ctx.Value(principalContextKey{})
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func principalFromRequest(r *http.Request) Principal {
	role := strings.TrimSpace(strings.ToLower(r.Header.Get(RoleHeader)))
	if role == "" {
		role = authz.RoleAnonymous
	}
	return Principal{RoleSlug: role}
}
