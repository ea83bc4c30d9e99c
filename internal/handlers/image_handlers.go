package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"storefront/internal/common"
	"storefront/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ImageHandlers handles HTTP requests for image uploads and deletion
type ImageHandlers struct {
	images services.ImageService
}

// NewImageHandlers creates a new image handlers instance
func NewImageHandlers(images services.ImageService) *ImageHandlers {
	return &ImageHandlers{images: images}
}

// UploadProductImage handles POST /products/:id/images
func (h *ImageHandlers) UploadProductImage(c echo.Context) error {
	productID, err := common.ValidateUUID(c.Param("id"), "product id")
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}
	return h.upload(c, &productID)
}

// UploadImage handles POST /images: an upload not yet attached to any
// product.
func (h *ImageHandlers) UploadImage(c echo.Context) error {
	return h.upload(c, nil)
}

func (h *ImageHandlers) upload(c echo.Context, productID *uuid.UUID) error {
	ctx := c.Request().Context()

	file, err := c.FormFile("image")
	if err != nil {
		return common.SendClientError(c, "No image file provided")
	}

	src, err := file.Open()
	if err != nil {
		log.Printf("Failed to open upload %s: %v", file.Filename, err)
		return common.SendServerError(c, "Failed to read uploaded file")
	}
	defer src.Close()

	upload := services.ImageUpload{
		Filename:  file.Filename,
		Reader:    src,
		Size:      file.Size,
		ProductID: productID,
	}
	if title := c.FormValue("title"); title != "" {
		upload.Title = &title
	}
	if primary := c.FormValue("primary"); primary != "" {
		upload.Primary, err = strconv.ParseBool(primary)
		if err != nil {
			return common.SendValidationError(c, "primary must be a boolean")
		}
	}
	if placeholder := c.FormValue("placeholder"); placeholder != "" {
		upload.Placeholder, err = strconv.ParseBool(placeholder)
		if err != nil {
			return common.SendValidationError(c, "placeholder must be a boolean")
		}
	}

	image, err := h.images.Upload(ctx, upload)
	if err != nil {
		if image != nil {
			// Metadata was written but the thumbnail failed; the record is
			// kept and the error surfaced.
			log.Printf("Thumbnail generation failed for image %s: %v", image.ID.String(), err)
			return common.SendServerError(c, "Image stored but thumbnail generation failed")
		}
		return h.respondError(c, err)
	}

	item := &imageResponse{Image: image}
	if urls, err := h.images.URLs(ctx, image); err == nil {
		item.URLs = urls
	}
	return c.JSON(http.StatusCreated, item)
}

// GetImage handles GET /images/:id
func (h *ImageHandlers) GetImage(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "image id")
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}

	image, err := h.images.GetByID(ctx, id)
	if err != nil {
		return h.respondError(c, err)
	}

	item := &imageResponse{Image: image}
	if urls, err := h.images.URLs(ctx, image); err == nil {
		item.URLs = urls
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteImage handles DELETE /images/:id. Removes the original and the
// thumbnail from storage before removing the record.
func (h *ImageHandlers) DeleteImage(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "image id")
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}

	if err := h.images.Delete(ctx, id); err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Image deleted"})
}

func (h *ImageHandlers) respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return common.SendNotFoundError(c, "Image")
	case services.IsValidation(err):
		return common.SendValidationError(c, err.Error())
	default:
		log.Printf("Image handler error: %v", err)
		return common.SendServerError(c, "Operation could not be completed")
	}
}
