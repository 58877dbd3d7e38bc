package services

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/fieldmeta"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/pkg/civildate"
	"github.com/jacksonlee411/assetdesk/pkg/httperr"
	"github.com/jacksonlee411/assetdesk/pkg/logger"
	"github.com/jacksonlee411/assetdesk/pkg/money"
)

type CreateAssetRequest struct {
	Category string
	// NewType creates Category from the master catalog fields named in
	// Features before inserting.
	NewType  bool
	Features []string
	Data     map[string]string
}

type CreateAssetResult struct {
	ID       string   `json:"id"`
	Warnings []string `json:"warnings"`
}

type UpdateAssetRequest struct {
	ID         string
	Data       map[string]string
	Source     types.Source
	ForceApply bool
}

type UpdateAssetResult struct {
	Applied  bool     `json:"applied"`
	Warnings []string `json:"warnings"`
}

type CreateTypeRequest struct {
	Name string `validate:"required,max=50"`
	// Features picks master catalog fields; Fields supplies them directly.
	Features []string
	Fields   []types.FieldDefinition
}

// AssetWriteService runs every asset write through the sanitizer.
type AssetWriteService struct {
	assets     ports.AssetStore
	registry   ports.TypeSchemaRegistry
	sanitizer  *Sanitizer
	normalizer *KeyNormalizer
	validate   *validator.Validate
	log        logger.Logger
}

func NewAssetWriteService(assets ports.AssetStore, registry ports.TypeSchemaRegistry, sanitizer *Sanitizer, log logger.Logger) *AssetWriteService {
	if log == nil {
		log = logger.Nop()
	}
	return &AssetWriteService{
		assets:     assets,
		registry:   registry,
		sanitizer:  sanitizer,
		normalizer: NewKeyNormalizer(registry),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		log:        log,
	}
}

func (s *AssetWriteService) Create(ctx context.Context, req CreateAssetRequest) (CreateAssetResult, error) {
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return CreateAssetResult{}, httperr.NewBadRequest(ErrCodeCategoryRequired)
	}

	var fields []types.FieldDefinition
	if req.NewType {
		t, err := s.CreateType(ctx, CreateTypeRequest{Name: category, Features: req.Features})
		if err != nil {
			return CreateAssetResult{}, err
		}
		fields = t.Fields
	} else {
		t, err := s.registry.GetType(ctx, category)
		if err != nil {
			return CreateAssetResult{}, err
		}
		fields = t.Fields
	}

	rec := types.Record{}
	for _, f := range fields {
		raw, ok := req.Data[f.Name]
		if !ok {
			raw = req.Data[f.Label]
		}
		rec[f.Name] = formValue(f, raw)
	}
	rec[fieldmeta.FieldCategory] = types.Text(category)

	allowed := types.FieldNameSet(fields)
	allowed[fieldmeta.FieldCategory] = struct{}{}
	payload, warnings, err := s.sanitizer.Sanitize(nil, rec, SanitizeOptions{
		Source:        types.SourceUI,
		AllowedFields: allowed,
		Mode:          types.ModeCreate,
	})
	if err != nil {
		return CreateAssetResult{}, err
	}
	id, err := s.assets.Insert(ctx, payload)
	if err != nil {
		return CreateAssetResult{}, err
	}
	s.log.Info("asset created", "id", id, "category", category, "warnings", len(warnings))
	return CreateAssetResult{ID: id, Warnings: nonNilStrings(warnings)}, nil
}

// Update applies user-editable changes to an existing asset. A
// spreadsheet-sourced update with warnings is not written unless ForceApply.
func (s *AssetWriteService) Update(ctx context.Context, req UpdateAssetRequest) (UpdateAssetResult, error) {
	asset, err := s.assets.Get(ctx, req.ID)
	if err != nil {
		return UpdateAssetResult{}, err
	}
	old, fields, err := s.normalizer.Normalize(ctx, asset.Data)
	if err != nil {
		return UpdateAssetResult{}, err
	}

	byName := make(map[string]types.FieldDefinition, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	incoming := types.Record{}
	for key, raw := range req.Data {
		f, ok := byName[key]
		if !ok {
			f = types.FieldDefinition{Name: key, Kind: types.FieldText}
		}
		incoming[key] = formValue(f, raw)
	}
	incoming = ReconcileLabels(incoming, fields)

	source := req.Source
	if source == "" {
		source = types.SourceUI
	}
	payload, warnings, err := s.sanitizer.Sanitize(old, incoming, SanitizeOptions{
		Source:        source,
		ForceApply:    req.ForceApply,
		AllowedFields: types.FieldNameSet(fields),
		Mode:          types.ModeUpdate,
	})
	if err != nil {
		if field, ok := ImmutableViolationField(err); ok {
			s.log.Warn("immutable field modified", "id", req.ID, "field", field)
		}
		return UpdateAssetResult{}, err
	}
	if len(payload) == 0 {
		s.log.Info("update held for warnings", "id", req.ID, "warnings", len(warnings))
		return UpdateAssetResult{Applied: false, Warnings: nonNilStrings(warnings)}, nil
	}
	if err := s.assets.Replace(ctx, req.ID, payload); err != nil {
		return UpdateAssetResult{}, err
	}
	return UpdateAssetResult{Applied: true, Warnings: nonNilStrings(warnings)}, nil
}

// CreateType registers a new category. Names are unique.
func (s *AssetWriteService) CreateType(ctx context.Context, req CreateTypeRequest) (types.AssetType, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return types.AssetType{}, httperr.NewBadRequest(ErrCodeAssetTypeInvalid)
	}
	fields := req.Fields
	if len(fields) == 0 {
		fields = fieldmeta.SelectMasterFields(req.Features)
	}
	if len(fields) == 0 {
		return types.AssetType{}, httperr.NewBadRequest(ErrCodeAssetTypeInvalid)
	}
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Label) == "" || !f.Kind.Valid() {
			return types.AssetType{}, httperr.NewBadRequest(ErrCodeAssetTypeInvalid)
		}
	}

	_, err := s.registry.GetType(ctx, req.Name)
	switch {
	case err == nil:
		return types.AssetType{}, ErrAssetTypeExists
	case !errors.Is(err, ports.ErrAssetTypeNotFound):
		return types.AssetType{}, err
	}

	t := types.AssetType{Name: req.Name, Fields: fields}
	if err := s.registry.UpsertType(ctx, t); err != nil {
		return types.AssetType{}, err
	}
	s.log.Info("asset type created", "type", t.Name, "fields", len(t.Fields))
	return t, nil
}

// Delete removes assets by id and reports how many existed.
func (s *AssetWriteService) Delete(ctx context.Context, ids []string) (int, error) {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return 0, httperr.NewBadRequest(ErrCodeIDsRequired)
	}
	n, err := s.assets.Delete(ctx, clean)
	if err != nil {
		return 0, err
	}
	s.log.Info("assets deleted", "requested", len(clean), "deleted", n)
	return n, nil
}

// formValue types a submitted form string by its field: parseable dates
// become dates, money fields numbers, everything else trimmed text.
func formValue(f types.FieldDefinition, raw string) types.Value {
	raw = strings.TrimSpace(raw)
	switch {
	case f.Kind == types.FieldDate || fieldmeta.IsDateField(f.Name):
		if d, ok := civildate.Parse(raw); ok {
			return types.Date(d)
		}
		return types.Text(raw)
	case isCurrencyKey(f.Name):
		if raw == "" {
			return types.Text("")
		}
		return types.Number(money.Normalize(raw))
	default:
		return types.Text(raw)
	}
}

func nonNilStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
