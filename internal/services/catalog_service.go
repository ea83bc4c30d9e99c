package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"storefront/internal/caching"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const productCacheTTL = 15 * time.Minute

type CatalogService interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListPublished(ctx context.Context, page int) (*models.ProductPage, error)
	RepresentativeImage(ctx context.Context, productID uuid.UUID) (*models.Image, error)
}

type catalogService struct {
	productRepo   repositories.ProductRepository
	imageRepo     repositories.ImageRepository
	images        ImageService
	cache         caching.CacheService
	placeholderID uuid.UUID
	pageSize      int
}

// NewCatalogService builds the catalog. placeholderID identifies the
// catalog-wide fallback image, resolved once at startup and injected here
// instead of being lazily looked up per request. pageSize below 1 is
// clamped to 1.
func NewCatalogService(productRepo repositories.ProductRepository, imageRepo repositories.ImageRepository, images ImageService, cache caching.CacheService, placeholderID uuid.UUID, pageSize int) CatalogService {
	if pageSize < 1 {
		pageSize = 1
	}
	return &catalogService{
		productRepo:   productRepo,
		imageRepo:     imageRepo,
		images:        images,
		cache:         cache,
		placeholderID: placeholderID,
		pageSize:      pageSize,
	}
}

func validateProduct(product *models.Product) error {
	if strings.TrimSpace(product.Title) == "" {
		return ErrTitleRequired
	}
	if product.Price < 0 {
		return ErrNegativePrice
	}
	return nil
}

func (s *catalogService) Create(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	product.ID = uuid.New()
	return s.productRepo.Create(ctx, product)
}

func (s *catalogService) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if cached, err := s.cache.GetProduct(ctx, id); cached != nil {
		return cached, nil
	} else if err != nil {
		// Cache errors shouldn't fail the read.
		log.Printf("Cache error for product %s: %v", id.String(), err)
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetProduct(ctx, product, productCacheTTL); err != nil {
		log.Printf("Failed to cache product %s: %v", id.String(), err)
	}

	return product, nil
}

func (s *catalogService) Update(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	if _, err := s.GetByID(ctx, product.ID); err != nil {
		return err
	}
	if err := s.productRepo.Update(ctx, product); err != nil {
		return err
	}
	if err := s.cache.DeleteProduct(ctx, product.ID); err != nil {
		log.Printf("Failed to invalidate product %s: %v", product.ID.String(), err)
	}
	return nil
}

// Delete tears down each of the product's images, files included, before
// deleting the product row.
func (s *catalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.images.DeleteByProduct(ctx, id); err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.DeleteProduct(ctx, id); err != nil {
		log.Printf("Failed to invalidate product %s: %v", id.String(), err)
	}
	return nil
}

// ListPublished pages through published products. Page numbers are clamped:
// anything below 1 becomes the first page, anything past the end becomes
// the last page.
func (s *catalogService) ListPublished(ctx context.Context, page int) (*models.ProductPage, error) {
	total, err := s.productRepo.CountPublished(ctx)
	if err != nil {
		return nil, err
	}

	totalPages := (total + s.pageSize - 1) / s.pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	products, err := s.productRepo.ListPublished(ctx, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, err
	}

	return &models.ProductPage{
		Products:   products,
		Page:       page,
		PageSize:   s.pageSize,
		TotalPages: totalPages,
		TotalItems: total,
	}, nil
}

// RepresentativeImage returns the image shown for the product in listings:
// the shared placeholder when the product has no images, otherwise its
// unique primary image. Zero or multiple primaries among existing images
// fail loudly.
func (s *catalogService) RepresentativeImage(ctx context.Context, productID uuid.UUID) (*models.Image, error) {
	images, err := s.imageRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if len(images) == 0 {
		placeholder, err := s.imageRepo.GetByID(ctx, s.placeholderID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return placeholder, err
	}

	var primary *models.Image
	for _, image := range images {
		if !image.PrimaryImage {
			continue
		}
		if primary != nil {
			return nil, ErrAmbiguousPrimary
		}
		primary = image
	}
	if primary == nil {
		return nil, ErrNoPrimaryImage
	}
	return primary, nil
}
