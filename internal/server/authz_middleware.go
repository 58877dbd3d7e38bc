package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jacksonlee411/assetdesk/internal/routing"
	"github.com/jacksonlee411/assetdesk/pkg/authz"
	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

func loadAuthorizer() (*authz.Authorizer, error) {
	modelPath := os.Getenv("AUTHZ_MODEL_PATH")
	if modelPath == "" {
		p, err := defaultConfigPath("config/access/model.conf")
		if err != nil {
			return nil, errors.New("server: authz model not found")
		}
		modelPath = p
	}

	policyPath := os.Getenv("AUTHZ_POLICY_PATH")
	if policyPath == "" {
		p, err := defaultConfigPath("config/access/policy.csv")
		if err != nil {
			return nil, errors.New("server: authz policy not found")
		}
		policyPath = p
	}

	mode, err := authz.ModeFromEnv()
	if err != nil {
		return nil, err
	}

	return authz.New(authz.Config{ModelPath: modelPath, PolicyPath: policyPath, Mode: mode})
}

func defaultConfigPath(path string) (string, error) {
	for range 8 {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", os.ErrNotExist
}

type authorizer interface {
	Authorize(subject string, domain string, object string, action string) (allowed bool, enforced bool, err error)
}

func withAuthz(classifier *routing.Classifier, a authorizer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		rc := routing.RouteClassUI
		if classifier != nil {
			rc = classifier.Classify(path)
		}

		p := principalFromRequest(r)
		r = r.WithContext(withPrincipal(r.Context(), p))

		object, action, shouldCheck := authzRequirementForRoute(r.Method, path)
		if !shouldCheck {
			next.ServeHTTP(w, r)
			return
		}

		subject := authz.SubjectFromRoleSlug(p.RoleSlug)
		allowed, enforced, err := a.Authorize(subject, authz.DomainGlobal, object, action)
		if err != nil {
			logger.FromContext(r.Context()).Error("authz failed", "subject", subject, "object", object, "action", action, "error", err)
			routing.WriteError(w, r, rc, http.StatusInternalServerError, "authz_error", "authz error")
			return
		}
		if !allowed {
			if !enforced {
				logger.FromContext(r.Context()).Warn("authz shadow deny", "subject", subject, "object", object, "action", action)
			} else {
				routing.WriteError(w, r, rc, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// authzRequirementForRoute maps a request onto the casbin object and action
// it needs. Health checks are open.
func authzRequirementForRoute(method string, path string) (object string, action string, ok bool) {
	switch path {
	case "/health", "/healthz":
		return "", "", false
	case "/metrics":
		return authz.ObjectMetrics, authz.ActionRead, true
	}

	switch {
	case pathHasPrefixSegment(path, "/ops/api/backups"):
		return authz.ObjectBackups, authz.ActionAdmin, true
	case pathHasPrefixSegment(path, "/api/v1/types"):
		if method == http.MethodGet {
			return authz.ObjectTypes, authz.ActionRead, true
		}
		return authz.ObjectTypes, authz.ActionAdmin, true
	case pathHasPrefixSegment(path, "/api/v1/imports"):
		if method == http.MethodGet {
			return authz.ObjectImports, authz.ActionRead, true
		}
		return authz.ObjectImports, authz.ActionWrite, true
	case path == "/api/v1/assets/export" || path == "/api/v1/assets/export/keka":
		return authz.ObjectExports, authz.ActionRead, true
	case pathHasPrefixSegment(path, "/api/v1/assets") || path == "/api/v1/master-fields":
		if method == http.MethodGet {
			return authz.ObjectAssets, authz.ActionRead, true
		}
		return authz.ObjectAssets, authz.ActionWrite, true
	default:
		return "", "", false
	}
}

func pathHasPrefixSegment(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
