package services

import (
	"context"
	_ "embed"
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"
)

//go:embed import_admission.rego
var defaultAdmissionPolicy string

const admissionQuery = "data.assetdesk.imports.allow"

// AdmissionInput describes one staged row at confirm time.
type AdmissionInput struct {
	Sheet           string   `json:"sheet"`
	Row             int      `json:"row"`
	ErrorFields     []string `json:"error_fields"`
	SuggestedFields []string `json:"suggested_fields"`
	CorrectedFields []string `json:"corrected_fields"`
}

// RowAdmission decides whether a staged row may be committed.
type RowAdmission interface {
	Admit(ctx context.Context, in AdmissionInput) (bool, error)
}

// RegoAdmission evaluates a prepared rego query; the policy must define
// data.assetdesk.imports.allow.
type RegoAdmission struct {
	query rego.PreparedEvalQuery
}

func NewRegoAdmission(ctx context.Context, module string) (*RegoAdmission, error) {
	if strings.TrimSpace(module) == "" {
		module = defaultAdmissionPolicy
	}
	pq, err := rego.New(
		rego.Query(admissionQuery),
		rego.Module("import_admission.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &RegoAdmission{query: pq}, nil
}

// LoadRegoAdmission reads a policy file; an empty path uses the built-in policy.
func LoadRegoAdmission(ctx context.Context, path string) (*RegoAdmission, error) {
	if strings.TrimSpace(path) == "" {
		return NewRegoAdmission(ctx, "")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewRegoAdmission(ctx, string(b))
}

func (a *RegoAdmission) Admit(ctx context.Context, in AdmissionInput) (bool, error) {
	if a == nil {
		return false, errors.New("admission: policy not loaded")
	}
	rs, err := a.query.Eval(ctx, rego.EvalInput(map[string]any{
		"sheet":            in.Sheet,
		"row":              in.Row,
		"error_fields":     nonNil(in.ErrorFields),
		"suggested_fields": nonNil(in.SuggestedFields),
		"corrected_fields": nonNil(in.CorrectedFields),
	}))
	if err != nil {
		return false, err
	}
	return rs.Allowed(), nil
}

func nonNil(ss []string) []any {
	out := make([]any, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
