package models

import (
	"time"

	"github.com/google/uuid"
)

// PlaceholderTitle is the well-known title of the catalog-wide fallback
// image shown for products that have no uploads.
const PlaceholderTitle = "no-product-image-placeholder"

type Image struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UploadedAt    time.Time  `json:"uploaded_at" db:"uploaded_at"`
	FullImagePath string     `json:"full_image_path" db:"full_image_path"`
	Title         *string    `json:"title,omitempty" db:"title"`
	ProductID     *uuid.UUID `json:"product_id,omitempty" db:"product_id"`
	PrimaryImage  bool       `json:"primary_image" db:"primary_image"`
	IsPlaceholder bool       `json:"is_placeholder" db:"is_placeholder"`
}
