package types

import "errors"

// Sentinel errors for rule processing.
var (
	// ErrInvalidRule indicates a rule lacks required keys (standards, core_id).
	ErrInvalidRule = errors.New("rule is structurally invalid")

	// ErrInvalidCondition indicates a condition tree node could not be decoded.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrEmptyConditions indicates a rule has no condition tree.
	ErrEmptyConditions = errors.New("rule conditions are empty")

	// ErrMissingMessage indicates a rule has no action message template.
	ErrMissingMessage = errors.New("rule has no action message")

	// ErrUnknownOperation indicates an operation name that resolves to no capability.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrDomainNotFound indicates a cross-domain lookup target is absent from the descriptors.
	ErrDomainNotFound = errors.New("domain not found in dataset descriptors")

	// ErrColumnNotFound indicates an operation referenced a column the dataset lacks.
	ErrColumnNotFound = errors.New("column not found")

	// ErrNoDefineXML indicates Define-XML metadata was requested without a reader.
	ErrNoDefineXML = errors.New("no Define-XML reader configured")

	// ErrCoercionFailed indicates a cell value could not be coerced.
	ErrCoercionFailed = errors.New("type coercion failed")
)
