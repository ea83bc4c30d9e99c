package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"storefront/internal/imaging"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ImageUpload carries one incoming upload through validation and the
// two-phase save.
type ImageUpload struct {
	Filename    string
	Reader      io.Reader
	Size        int64
	Title       *string
	ProductID   *uuid.UUID
	Primary     bool
	Placeholder bool
}

// ImageURLs are the resolved serving URLs for a stored image.
type ImageURLs struct {
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail"`
}

type ImageService interface {
	Upload(ctx context.Context, upload ImageUpload) (*models.Image, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*models.Image, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByProduct(ctx context.Context, productID uuid.UUID) error
	GetOrCreateByTitle(ctx context.Context, title, sourcePath string) (*models.Image, error)
	EnsureThumbnail(ctx context.Context, image *models.Image) error
	URLs(ctx context.Context, image *models.Image) (*ImageURLs, error)
}

type imageService struct {
	imageRepo   repositories.ImageRepository
	store       storage.Store
	thumbnailer *imaging.Thumbnailer
}

func NewImageService(imageRepo repositories.ImageRepository, store storage.Store, thumbnailer *imaging.Thumbnailer) ImageService {
	return &imageService{
		imageRepo:   imageRepo,
		store:       store,
		thumbnailer: thumbnailer,
	}
}

// Upload validates the upload, writes the original bytes at the derived
// storage name, persists the metadata row and then generates the thumbnail.
// A thumbnail failure does not roll back the metadata write: the record and
// its original are kept and the error is returned alongside the image.
func (s *imageService) Upload(ctx context.Context, upload ImageUpload) (*models.Image, error) {
	if !imaging.ExtensionAllowed(upload.Filename) {
		return nil, ErrExtensionNotAllowed
	}
	if upload.Placeholder && upload.ProductID != nil {
		return nil, ErrPlaceholderConflict
	}
	if upload.Primary && upload.ProductID != nil {
		taken, err := s.imageRepo.HasPrimary(ctx, *upload.ProductID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicatePrimary
		}
	}

	uploadedAt := time.Now().UTC()
	name := imaging.StorageName(upload.Filename, uploadedAt)

	if err := s.store.Write(ctx, name, upload.Reader, upload.Size); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", upload.Filename, err)
	}

	image := &models.Image{
		ID:            uuid.New(),
		UploadedAt:    uploadedAt,
		FullImagePath: name,
		Title:         upload.Title,
		ProductID:     upload.ProductID,
		PrimaryImage:  upload.Primary,
		IsPlaceholder: upload.Placeholder,
	}
	if err := s.imageRepo.Create(ctx, image); err != nil {
		return nil, err
	}

	if err := s.thumbnailer.Generate(ctx, name); err != nil {
		return image, err
	}

	return image, nil
}

func (s *imageService) GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	image, err := s.imageRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return image, err
}

func (s *imageService) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*models.Image, error) {
	return s.imageRepo.ListByProduct(ctx, productID)
}

// Delete removes the original and thumbnail files from storage, then the
// metadata row. A file that is already gone is not an error. The shared
// placeholder is refused: deleting it would leave every imageless product
// without a representative image until restart.
func (s *imageService) Delete(ctx context.Context, id uuid.UUID) error {
	image, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if image.IsPlaceholder {
		return ErrPlaceholderProtected
	}
	return s.deleteImage(ctx, image)
}

// DeleteByProduct tears down every image of the product individually so
// each one's stored files are cleaned up, never a single bulk row delete.
func (s *imageService) DeleteByProduct(ctx context.Context, productID uuid.UUID) error {
	images, err := s.imageRepo.ListByProduct(ctx, productID)
	if err != nil {
		return err
	}
	for _, image := range images {
		if err := s.deleteImage(ctx, image); err != nil {
			return err
		}
	}
	return nil
}

func (s *imageService) deleteImage(ctx context.Context, image *models.Image) error {
	if err := s.store.Remove(ctx, image.FullImagePath); err != nil {
		return fmt.Errorf("failed to remove %s: %w", image.FullImagePath, err)
	}
	thumbName := imaging.ThumbName(image.FullImagePath)
	if err := s.store.Remove(ctx, thumbName); err != nil {
		return fmt.Errorf("failed to remove %s: %w", thumbName, err)
	}
	return s.imageRepo.Delete(ctx, image.ID)
}

// GetOrCreateByTitle returns the image with the given title, creating it
// from the file at sourcePath as an unattached placeholder if no such image
// exists. Used to materialize the catalog-wide placeholder once at startup.
func (s *imageService) GetOrCreateByTitle(ctx context.Context, title, sourcePath string) (*models.Image, error) {
	image, err := s.imageRepo.GetByTitle(ctx, title)
	if err == nil {
		return image, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	file, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open placeholder source %s: %w", sourcePath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	log.Printf("Creating image %q from %s", title, sourcePath)
	return s.Upload(ctx, ImageUpload{
		Filename:    filepath.Base(sourcePath),
		Reader:      file,
		Size:        info.Size(),
		Title:       &title,
		Placeholder: true,
	})
}

// EnsureThumbnail regenerates the image's thumbnail if it is missing. A
// no-op when the thumbnail already exists.
func (s *imageService) EnsureThumbnail(ctx context.Context, image *models.Image) error {
	return s.thumbnailer.Generate(ctx, image.FullImagePath)
}

func (s *imageService) URLs(ctx context.Context, image *models.Image) (*ImageURLs, error) {
	original, err := s.store.URL(ctx, image.FullImagePath)
	if err != nil {
		return nil, err
	}
	thumbnail, err := s.store.URL(ctx, imaging.ThumbName(image.FullImagePath))
	if err != nil {
		return nil, err
	}
	return &ImageURLs{Original: original, Thumbnail: thumbnail}, nil
}
