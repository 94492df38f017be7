package model

import "errors"

var (
	// ErrUnknownField is returned when an edit names a field that is not editable.
	ErrUnknownField = errors.New("unknown block field")
	// ErrInvalidFieldValue is returned when a value cannot be converted to the field type.
	ErrInvalidFieldValue = errors.New("invalid field value")
	// ErrInvalidBlockType is returned for a block type outside the known set.
	ErrInvalidBlockType = errors.New("invalid block type")
)
