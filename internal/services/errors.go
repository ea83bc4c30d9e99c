package services

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// Validation failures, rejected before any storage or metadata write.
	ErrTitleRequired       = errors.New("product title is required")
	ErrNegativePrice       = errors.New("product price cannot be negative")
	ErrExtensionNotAllowed = errors.New("image extension is not allowed")
	ErrPlaceholderConflict = errors.New("image attached to a product cannot be a placeholder")
	ErrDuplicatePrimary    = errors.New("product already has a primary image")

	// ErrPlaceholderProtected rejects deleting the catalog-wide placeholder;
	// every imageless product depends on it.
	ErrPlaceholderProtected = errors.New("placeholder image cannot be deleted")

	// Primary-image multiplicity on lookup. Both fail loudly; upload-time
	// checks and the partial unique index keep them out of normal operation.
	ErrNoPrimaryImage   = errors.New("product has images but none is primary")
	ErrAmbiguousPrimary = errors.New("product has more than one primary image")
)

// IsValidation reports whether err is a pre-persistence validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrTitleRequired) ||
		errors.Is(err, ErrNegativePrice) ||
		errors.Is(err, ErrExtensionNotAllowed) ||
		errors.Is(err, ErrPlaceholderConflict) ||
		errors.Is(err, ErrDuplicatePrimary) ||
		errors.Is(err, ErrPlaceholderProtected)
}
