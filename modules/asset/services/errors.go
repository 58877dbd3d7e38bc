package services

import (
	"errors"
	"fmt"
)

// Stable error codes surfaced to the Web Layer.
const (
	ErrCodeImmutableFieldModified = "IMMUTABLE_FIELD_MODIFIED"
	ErrCodeCategoryRequired       = "CATEGORY_REQUIRED"
	ErrCodeAssetNotFound          = "ASSET_NOT_FOUND"
	ErrCodeAssetTypeNotFound      = "ASSET_TYPE_NOT_FOUND"
	ErrCodeAssetTypeExists        = "ASSET_TYPE_EXISTS"
	ErrCodeAssetTypeInvalid       = "ASSET_TYPE_INVALID"
	ErrCodePreviewNotFound        = "PREVIEW_NOT_FOUND"
	ErrCodeIDsRequired            = "IDS_REQUIRED"
	ErrCodeSanitizeModeMismatch   = "SANITIZE_MODE_MISMATCH"
)

// ImmutableViolationError is the only hard failure of a sanitize call.
type ImmutableViolationError struct {
	Field string
}

func (e *ImmutableViolationError) Error() string {
	return fmt.Sprintf("Immutable field modified: %s", e.Field)
}

func IsImmutableViolation(err error) bool {
	_, ok := errors.AsType[*ImmutableViolationError](err)
	return ok
}

// ImmutableViolationField returns the offending field, if err is a violation.
func ImmutableViolationField(err error) (string, bool) {
	v, ok := errors.AsType[*ImmutableViolationError](err)
	if !ok {
		return "", false
	}
	return v.Field, true
}

// ErrAssetTypeExists is returned by CreateType for a taken name.
var ErrAssetTypeExists = errors.New("asset_type_exists")
