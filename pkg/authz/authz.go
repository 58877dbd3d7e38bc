// Package authz decides whether a role may act on an asset desk object.
// Rules live in a casbin model and a CSV policy under config/access.
package authz

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

type Mode string

const (
	ModeEnforce  Mode = "enforce"
	ModeShadow   Mode = "shadow"
	ModeDisabled Mode = "disabled"
)

const subjectPrefix = "role:"

// ParseMode reads an AUTHZ_MODE value. Blank means enforce. Disabled is only
// accepted when allowDisabled is set.
func ParseMode(raw string, allowDisabled bool) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case "":
		return ModeEnforce, nil
	case ModeEnforce, ModeShadow:
		return m, nil
	case ModeDisabled:
		if !allowDisabled {
			return "", errors.New("authz: AUTHZ_MODE=disabled requires AUTHZ_UNSAFE_ALLOW_DISABLED=1")
		}
		return m, nil
	}
	return "", fmt.Errorf("authz: invalid AUTHZ_MODE %q (expected enforce|shadow|disabled)", raw)
}

func ModeFromEnv() (Mode, error) {
	return ParseMode(os.Getenv("AUTHZ_MODE"), os.Getenv("AUTHZ_UNSAFE_ALLOW_DISABLED") == "1")
}

type Config struct {
	ModelPath  string
	PolicyPath string
	Mode       Mode
}

type Authorizer struct {
	enforcer *casbin.Enforcer
	mode     Mode
}

func New(cfg Config) (*Authorizer, error) {
	enforcer, err := casbin.NewEnforcer(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("authz: model %s: %w", cfg.ModelPath, err)
	}
	enforcer.SetAdapter(fileadapter.NewAdapter(cfg.PolicyPath))
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("authz: policy %s: %w", cfg.PolicyPath, err)
	}
	return &Authorizer{enforcer: enforcer, mode: cfg.Mode}, nil
}

func (a *Authorizer) Mode() Mode { return a.mode }

// SubjectFromRoleSlug maps a role header value to a casbin subject.
// "Editor", "role:editor" and " editor " all give "role:editor".
func SubjectFromRoleSlug(roleSlug string) string {
	slug := strings.ToLower(strings.TrimSpace(roleSlug))
	slug = strings.TrimPrefix(slug, subjectPrefix)
	if slug == "" {
		slug = RoleAnonymous
	}
	return subjectPrefix + slug
}

// Authorize reports the policy decision and whether it is binding. Shadow
// mode evaluates the policy but never blocks; disabled mode allows everything.
func (a *Authorizer) Authorize(subject string, domain string, object string, action string) (allowed bool, enforced bool, err error) {
	if a.mode == ModeDisabled {
		return true, false, nil
	}
	if a.mode != ModeEnforce && a.mode != ModeShadow {
		return false, false, fmt.Errorf("authz: unknown mode %q", a.mode)
	}
	enforced = a.mode == ModeEnforce
	ok, err := a.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return false, enforced, fmt.Errorf("authz: %s %s %s: %w", subject, object, action, err)
	}
	return ok, enforced, nil
}
