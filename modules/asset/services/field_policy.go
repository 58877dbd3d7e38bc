package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FieldPolicyConfig is the on-disk shape of config/field_policy.yaml.
type FieldPolicyConfig struct {
	Version          int      `yaml:"version" validate:"eq=1"`
	Immutable        []string `yaml:"immutable" validate:"dive,required"`
	SystemControlled []string `yaml:"system_controlled" validate:"min=1,dive,required"`
	UserEditable     []string `yaml:"user_editable" validate:"dive,required"`
	RemarksTrigger   []string `yaml:"remarks_trigger" validate:"dive,required"`
}

// FieldPolicy classifies field names. It is immutable once built and safe for
// concurrent use.
type FieldPolicy struct {
	immutable      []string
	system         []string
	editable       []string
	remarksTrigger []string

	immutableSet map[string]struct{}
	systemSet    map[string]struct{}
	editableSet  map[string]struct{}
	triggerSet   map[string]struct{}
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

func NewFieldPolicy(cfg FieldPolicyConfig) (*FieldPolicy, error) {
	if err := configValidator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("field policy: %w", err)
	}
	p := &FieldPolicy{
		immutable:      dedupeNames(cfg.Immutable),
		system:         dedupeNames(cfg.SystemControlled),
		editable:       dedupeNames(cfg.UserEditable),
		remarksTrigger: dedupeNames(cfg.RemarksTrigger),
	}
	sort.Strings(p.immutable)
	p.immutableSet = nameSet(p.immutable)
	p.systemSet = nameSet(p.system)
	p.editableSet = nameSet(p.editable)
	p.triggerSet = nameSet(p.remarksTrigger)
	return p, nil
}

func DefaultFieldPolicyConfig() FieldPolicyConfig {
	return FieldPolicyConfig{
		Version: 1,
		Immutable: []string{
			"category", "serial_no", "asset_tag", "imei1", "imei2", "invoice_no",
			"purchase_date", "cpu_asset_tag", "monitor_asset_tag", "mtr_asset_tag",
		},
		SystemControlled: []string{"updated_at"},
		UserEditable: []string{
			"status", "remarks",
			"username", "user_code", "employee_code", "employee_name",
			"prev_emp", "prev_emp_code",
			"area", "area_of_collection", "state",
			"given_date", "collected_date", "prev_given_date",
			"vendor", "model", "os", "system_model", "system_manufacturer",
			"processor", "ram", "hdd", "hdd_type", "storage", "free_space", "battery_type",
			"domain", "ip_address", "endpoint_name", "license", "main_circuit_board", "monitor_make",
			"it_tag", "accounts_tag", "IT_tagC", "accounts_tagC", "IT_tagM", "accounts_tagM",
			"courier_by", "send_by", "received", "received_on_approval",
			"amount", "gst_18", "gst_22", "gst_28", "total", "year",
		},
		RemarksTrigger: []string{
			"status", "employee_code", "employee_name", "username", "user_code",
			"given_date", "collected_date", "area", "state",
		},
	}
}

// DefaultFieldPolicy is the built-in classification used when no config file is present.
func DefaultFieldPolicy() *FieldPolicy {
	p, err := NewFieldPolicy(DefaultFieldPolicyConfig())
	if err != nil {
		panic(err)
	}
	return p
}

// LoadFieldPolicy reads path, or the default config location when path is
// empty. A missing default file yields the built-in policy.
func LoadFieldPolicy(path string) (*FieldPolicy, error) {
	if strings.TrimSpace(path) == "" {
		p, err := defaultConfigPath("config/field_policy.yaml")
		if err != nil {
			return DefaultFieldPolicy(), nil
		}
		path = p
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FieldPolicyConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return NewFieldPolicy(cfg)
}

func (p *FieldPolicy) IsImmutable(name string) bool        { return has(p.immutableSet, name) }
func (p *FieldPolicy) IsSystemControlled(name string) bool { return has(p.systemSet, name) }
func (p *FieldPolicy) IsUserEditable(name string) bool     { return has(p.editableSet, name) }
func (p *FieldPolicy) IsRemarksTrigger(name string) bool   { return has(p.triggerSet, name) }

// Immutable lists immutable names in sorted order.
func (p *FieldPolicy) Immutable() []string { return append([]string(nil), p.immutable...) }

func (p *FieldPolicy) SystemControlled() []string { return append([]string(nil), p.system...) }

// RemarksTrigger keeps configured order; audit lines list values in this order.
func (p *FieldPolicy) RemarksTrigger() []string { return append([]string(nil), p.remarksTrigger...) }

// Overlap lists names that are both immutable and user-editable. The immutable
// check runs first, so such a field can be written only while its old value is blank.
func (p *FieldPolicy) Overlap() []string {
	var out []string
	for _, name := range p.immutable {
		if has(p.editableSet, name) {
			out = append(out, name)
		}
	}
	return out
}

func has(set map[string]struct{}, name string) bool {
	_, ok := set[name]
	return ok
}

func nameSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

func dedupeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func defaultConfigPath(rel string) (string, error) {
	path := rel
	for range 8 {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("services: " + rel + " not found")
}
