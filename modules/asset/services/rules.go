package services

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/fieldmeta"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"gopkg.in/yaml.v3"
)

// RuleConfig is the on-disk shape of config/asset_rules.yaml.
type RuleConfig struct {
	Version int        `yaml:"version" validate:"eq=1"`
	Rules   []RuleSpec `yaml:"rules" validate:"dive"`
}

// RuleSpec is one advisory check. Expr must be a CEL boolean over `asset`
// (map of field name to value) and `category`; false emits Message.
type RuleSpec struct {
	ID         string   `yaml:"id" validate:"required"`
	Categories []string `yaml:"categories"`
	Expr       string   `yaml:"expr" validate:"required"`
	Message    string   `yaml:"message" validate:"required"`
}

type compiledRule struct {
	spec       RuleSpec
	categories map[string]struct{}
	program    cel.Program
}

// RuleSet evaluates compiled CEL rules. Evaluation errors (a missing key,
// a type mismatch) skip the rule rather than warn.
type RuleSet struct {
	rules []compiledRule
}

var newRulesCELEnv = func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("asset", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("category", cel.StringType),
	)
}

func NewRuleSet(cfg RuleConfig) (*RuleSet, error) {
	if err := configValidator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("asset rules: %w", err)
	}
	env, err := newRulesCELEnv()
	if err != nil {
		return nil, err
	}
	rs := &RuleSet{}
	seen := map[string]struct{}{}
	for _, spec := range cfg.Rules {
		if _, dup := seen[spec.ID]; dup {
			return nil, fmt.Errorf("asset rules: duplicate rule id %q", spec.ID)
		}
		seen[spec.ID] = struct{}{}
		program, err := compileRule(env, spec.Expr)
		if err != nil {
			return nil, fmt.Errorf("asset rules: %s: %w", spec.ID, err)
		}
		cats := make(map[string]struct{}, len(spec.Categories))
		for _, c := range spec.Categories {
			cats[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
		}
		rs.rules = append(rs.rules, compiledRule{spec: spec, categories: cats, program: program})
	}
	return rs, nil
}

func compileRule(env *cel.Env, expr string) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("expression required")
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.New("expression output type mismatch")
	}
	return env.Program(ast)
}

// LoadRuleSet reads path; an empty path or missing default file yields no rules.
func LoadRuleSet(path string) (*RuleSet, error) {
	if strings.TrimSpace(path) == "" {
		p, err := defaultConfigPath("config/asset_rules.yaml")
		if err != nil {
			return &RuleSet{}, nil
		}
		path = p
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg RuleConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return NewRuleSet(cfg)
}

func (rs *RuleSet) Len() int { return len(rs.rules) }

func (rs *RuleSet) Evaluate(category string, rec types.Record) []string {
	if rs == nil || len(rs.rules) == 0 {
		return nil
	}
	activation := map[string]any{
		"asset":    celAsset(rec),
		"category": category,
	}
	cat := strings.ToLower(strings.TrimSpace(category))
	var out []string
	for _, r := range rs.rules {
		if len(r.categories) > 0 {
			if _, ok := r.categories[cat]; !ok {
				continue
			}
		}
		val, _, err := r.program.Eval(activation)
		if err != nil {
			continue
		}
		if ok, isBool := val.Value().(bool); isBool && !ok {
			out = append(out, r.spec.Message)
		}
	}
	return out
}

// celAsset exposes numbers and currency fields as doubles and everything else
// as display text. Null values are omitted so rules can use has().
func celAsset(rec types.Record) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		switch {
		case v.IsNull():
			continue
		case fieldmeta.IsCurrencyField(k):
			out[k] = MoneyOf(v).InexactFloat64()
		case v.Kind() == types.KindNumber:
			n, _ := v.AsNumber()
			out[k] = n.InexactFloat64()
		default:
			out[k] = v.String()
		}
	}
	return out
}
