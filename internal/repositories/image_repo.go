package repositories

import (
	"context"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

type ImageRepository interface {
	Create(ctx context.Context, image *models.Image) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error)
	GetByTitle(ctx context.Context, title string) (*models.Image, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*models.Image, error)
	List(ctx context.Context, limit, offset int) ([]*models.Image, error)
	ListOrphaned(ctx context.Context, before time.Time) ([]*models.Image, error)
	HasPrimary(ctx context.Context, productID uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type imageRepo struct {
	db Database
}

func NewImageRepo(db Database) ImageRepository {
	return &imageRepo{db: db}
}

const imageColumns = `id, uploaded_at, full_image_path, title, product_id, primary_image, is_placeholder`

func scanImage(row interface {
	Scan(dest ...any) error
}) (*models.Image, error) {
	image := &models.Image{}
	err := row.Scan(
		&image.ID, &image.UploadedAt, &image.FullImagePath, &image.Title,
		&image.ProductID, &image.PrimaryImage, &image.IsPlaceholder,
	)
	if err != nil {
		return nil, err
	}
	return image, nil
}

func (r *imageRepo) Create(ctx context.Context, image *models.Image) error {
	query := `
		INSERT INTO images (id, uploaded_at, full_image_path, title, product_id, primary_image, is_placeholder)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		image.ID, image.UploadedAt, image.FullImagePath, image.Title,
		image.ProductID, image.PrimaryImage, image.IsPlaceholder,
	)
	return err
}

func (r *imageRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`
	return scanImage(r.db.QueryRow(ctx, query, id))
}

func (r *imageRepo) GetByTitle(ctx context.Context, title string) (*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE title = $1`
	return scanImage(r.db.QueryRow(ctx, query, title))
}

func (r *imageRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*models.Image, error) {
	query := `
		SELECT ` + imageColumns + `
		FROM images
		WHERE product_id = $1
		ORDER BY uploaded_at ASC, id ASC
	`
	return r.queryImages(ctx, query, productID)
}

func (r *imageRepo) List(ctx context.Context, limit, offset int) ([]*models.Image, error) {
	query := `
		SELECT ` + imageColumns + `
		FROM images
		ORDER BY uploaded_at ASC, id ASC
		LIMIT $1 OFFSET $2
	`
	return r.queryImages(ctx, query, limit, offset)
}

func (r *imageRepo) ListOrphaned(ctx context.Context, before time.Time) ([]*models.Image, error) {
	query := `
		SELECT ` + imageColumns + `
		FROM images
		WHERE product_id IS NULL AND NOT is_placeholder AND uploaded_at < $1
	`
	return r.queryImages(ctx, query, before)
}

func (r *imageRepo) HasPrimary(ctx context.Context, productID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM images WHERE product_id = $1 AND primary_image)`
	if err := r.db.QueryRow(ctx, query, productID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *imageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM images WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *imageRepo) queryImages(ctx context.Context, query string, args ...any) ([]*models.Image, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []*models.Image
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}
