package server

import (
	"context"
	"fmt"

	"github.com/jacksonlee411/assetdesk/modules/asset/services"
	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

// Services is the application layer built over a set of stores.
type Services struct {
	Sanitizer *services.Sanitizer
	Read      *services.AssetReadService
	Write     *services.AssetWriteService
	Import    *services.ImportService
}

// BuildServices loads the field policy, advisory rules and import admission
// policy, then wires the asset services.
func BuildServices(ctx context.Context, cfg Config, stores *Stores, log logger.Logger) (*Services, error) {
	if log == nil {
		log = logger.Nop()
	}
	policy, err := services.LoadFieldPolicy(cfg.FieldPolicyPath)
	if err != nil {
		return nil, fmt.Errorf("server: field policy: %w", err)
	}
	if overlap := policy.Overlap(); len(overlap) > 0 {
		log.Warn("fields are both immutable and user-editable; immutable wins", "fields", overlap)
	}
	rules, err := services.LoadRuleSet(cfg.AssetRulesPath)
	if err != nil {
		return nil, fmt.Errorf("server: asset rules: %w", err)
	}
	admission, err := services.LoadRegoAdmission(ctx, cfg.ImportAdmissionPath)
	if err != nil {
		return nil, fmt.Errorf("server: import admission: %w", err)
	}
	log.Info("asset services ready", "advisory_rules", rules.Len(), "immutable_fields", len(policy.Immutable()))

	sanitizer := services.NewSanitizer(policy, services.WithRules(rules))
	return &Services{
		Sanitizer: sanitizer,
		Read:      services.NewAssetReadService(stores.Assets, stores.Types),
		Write:     services.NewAssetWriteService(stores.Assets, stores.Types, sanitizer, log.With("component", "asset_write")),
		Import: services.NewImportService(stores.Previews, stores.Assets, stores.Types, sanitizer, admission,
			services.WithImportLogger(log.With("component", "import")),
		),
	}, nil
}
