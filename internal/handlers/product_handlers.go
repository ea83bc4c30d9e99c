package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"storefront/internal/common"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/labstack/echo/v4"
)

// ProductHandlers handles HTTP requests for products
type ProductHandlers struct {
	catalog services.CatalogService
	images  services.ImageService
}

// NewProductHandlers creates a new product handlers instance
func NewProductHandlers(catalog services.CatalogService, images services.ImageService) *ProductHandlers {
	return &ProductHandlers{
		catalog: catalog,
		images:  images,
	}
}

type productRequest struct {
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	IsPublished bool    `json:"is_published"`
}

type productListItem struct {
	*models.Product
	Image *services.ImageURLs `json:"image,omitempty"`
}

type imageResponse struct {
	*models.Image
	URLs *services.ImageURLs `json:"urls,omitempty"`
}

// ListProducts handles GET /products: a page of published products, each
// with its representative image.
func (h *ProductHandlers) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	// Non-integer page parameters fall back to the first page; the service
	// clamps out-of-range pages.
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil {
		page = 1
	}

	result, err := h.catalog.ListPublished(ctx, page)
	if err != nil {
		log.Printf("Failed to list products: %v", err)
		return common.SendServerError(c, "Failed to list products")
	}

	items := make([]*productListItem, 0, len(result.Products))
	for _, product := range result.Products {
		item := &productListItem{Product: product}
		if urls, err := h.representativeURLs(c, product); err != nil {
			// A misconfigured product shouldn't take the listing down.
			log.Printf("No representative image for product %s: %v", product.ID.String(), err)
		} else {
			item.Image = urls
		}
		items = append(items, item)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"products":    items,
		"page":        result.Page,
		"page_size":   result.PageSize,
		"total_pages": result.TotalPages,
		"total_items": result.TotalItems,
	})
}

func (h *ProductHandlers) representativeURLs(c echo.Context, product *models.Product) (*services.ImageURLs, error) {
	ctx := c.Request().Context()
	image, err := h.catalog.RepresentativeImage(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	return h.images.URLs(ctx, image)
}

// GetProduct handles GET /products/:id: the product, all its images in
// upload order and the representative image (placeholder when it has none).
func (h *ProductHandlers) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "product id")
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}

	product, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		return h.respondError(c, err)
	}

	images, err := h.images.ListByProduct(ctx, id)
	if err != nil {
		log.Printf("Failed to list images for product %s: %v", id.String(), err)
		return common.SendServerError(c, "Failed to load product images")
	}

	imageItems := make([]*imageResponse, 0, len(images))
	for _, image := range images {
		item := &imageResponse{Image: image}
		if urls, err := h.images.URLs(ctx, image); err == nil {
			item.URLs = urls
		}
		imageItems = append(imageItems, item)
	}

	representative, err := h.catalog.RepresentativeImage(ctx, id)
	if err != nil {
		return h.respondError(c, err)
	}
	repItem := &imageResponse{Image: representative}
	if urls, err := h.images.URLs(ctx, representative); err == nil {
		repItem.URLs = urls
	}

	return c.JSON(http.StatusOK, map[string]any{
		"product":              product,
		"images":               imageItems,
		"representative_image": repItem,
	})
}

// CreateProduct handles POST /products
func (h *ProductHandlers) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	product := &models.Product{
		Title:       req.Title,
		Price:       req.Price,
		Description: req.Description,
		IsPublished: req.IsPublished,
	}
	if err := h.catalog.Create(ctx, product); err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles PUT /products/:id
func (h *ProductHandlers) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "product id")
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	product := &models.Product{
		ID:          id,
		Title:       req.Title,
		Price:       req.Price,
		Description: req.Description,
		IsPublished: req.IsPublished,
	}
	if err := h.catalog.Update(ctx, product); err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/:id. Deleting a product tears
// down all of its images and their stored files.
func (h *ProductHandlers) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "product id")
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}

	if err := h.catalog.Delete(ctx, id); err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Product deleted"})
}

func (h *ProductHandlers) respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return common.SendNotFoundError(c, "Product")
	case services.IsValidation(err):
		return common.SendValidationError(c, err.Error())
	default:
		log.Printf("Product handler error: %v", err)
		return common.SendServerError(c, "Operation could not be completed")
	}
}
