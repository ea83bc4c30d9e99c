package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"storefront/internal/imaging"
	"storefront/internal/models"
	"storefront/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MockImageRepository struct {
	mock.Mock
}

func (m *MockImageRepository) Create(ctx context.Context, image *models.Image) error {
	args := m.Called(ctx, image)
	return args.Error(0)
}

func (m *MockImageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Image), args.Error(1)
}

func (m *MockImageRepository) GetByTitle(ctx context.Context, title string) (*models.Image, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Image), args.Error(1)
}

func (m *MockImageRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*models.Image, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Image), args.Error(1)
}

func (m *MockImageRepository) List(ctx context.Context, limit, offset int) ([]*models.Image, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Image), args.Error(1)
}

func (m *MockImageRepository) ListOrphaned(ctx context.Context, before time.Time) ([]*models.Image, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Image), args.Error(1)
}

func (m *MockImageRepository) HasPrimary(ctx context.Context, productID uuid.UUID) (bool, error) {
	args := m.Called(ctx, productID)
	return args.Bool(0), args.Error(1)
}

func (m *MockImageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type ImageServiceTestSuite struct {
	suite.Suite
	repo    *MockImageRepository
	store   *storage.FSStore
	root    string
	service ImageService
	context context.Context
}

func (suite *ImageServiceTestSuite) SetupTest() {
	suite.repo = &MockImageRepository{}
	suite.root = suite.T().TempDir()

	store, err := storage.NewFSStore(suite.root, "/media")
	require.NoError(suite.T(), err)
	suite.store = store

	thumbnailer := imaging.NewThumbnailer(store, 100, 100)
	suite.service = NewImageService(suite.repo, store, thumbnailer)
	suite.context = context.Background()
}

func (suite *ImageServiceTestSuite) TearDownTest() {
	suite.repo.AssertExpectations(suite.T())
}

func TestImageServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ImageServiceTestSuite))
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (suite *ImageServiceTestSuite) mediaFiles() []string {
	entries, err := os.ReadDir(suite.root)
	require.NoError(suite.T(), err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func (suite *ImageServiceTestSuite) TestUpload_PlaceholderWithProductRejectedBeforeAnyWrite() {
	productID := uuid.New()
	data := pngBytes(suite.T(), 50, 50)

	image, err := suite.service.Upload(suite.context, ImageUpload{
		Filename:    "photo.png",
		Reader:      bytes.NewReader(data),
		Size:        int64(len(data)),
		ProductID:   &productID,
		Placeholder: true,
	})

	assert.ErrorIs(suite.T(), err, ErrPlaceholderConflict)
	assert.Nil(suite.T(), image)
	assert.Empty(suite.T(), suite.mediaFiles())
	suite.repo.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *ImageServiceTestSuite) TestUpload_DisallowedExtensionRejected() {
	image, err := suite.service.Upload(suite.context, ImageUpload{
		Filename: "notes.txt",
		Reader:   bytes.NewReader([]byte("hi")),
		Size:     2,
	})

	assert.ErrorIs(suite.T(), err, ErrExtensionNotAllowed)
	assert.Nil(suite.T(), image)
	assert.Empty(suite.T(), suite.mediaFiles())
}

func (suite *ImageServiceTestSuite) TestUpload_SecondPrimaryRejected() {
	productID := uuid.New()
	data := pngBytes(suite.T(), 50, 50)

	suite.repo.On("HasPrimary", suite.context, productID).Return(true, nil).Once()

	image, err := suite.service.Upload(suite.context, ImageUpload{
		Filename:  "photo.png",
		Reader:    bytes.NewReader(data),
		Size:      int64(len(data)),
		ProductID: &productID,
		Primary:   true,
	})

	assert.ErrorIs(suite.T(), err, ErrDuplicatePrimary)
	assert.Nil(suite.T(), image)
	assert.Empty(suite.T(), suite.mediaFiles())
}

func (suite *ImageServiceTestSuite) TestUpload_WritesOriginalAndThumbnail() {
	productID := uuid.New()
	data := pngBytes(suite.T(), 400, 200)

	suite.repo.On("HasPrimary", suite.context, productID).Return(false, nil).Once()
	suite.repo.On("Create", suite.context, mock.MatchedBy(func(img *models.Image) bool {
		return img.ProductID != nil && *img.ProductID == productID && img.PrimaryImage && !img.IsPlaceholder
	})).Return(nil).Once()

	uploaded, err := suite.service.Upload(suite.context, ImageUpload{
		Filename:  "photo.png",
		Reader:    bytes.NewReader(data),
		Size:      int64(len(data)),
		ProductID: &productID,
		Primary:   true,
	})

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), uploaded)
	assert.Regexp(suite.T(), `^[0-9a-f]{32}\.png$`, uploaded.FullImagePath)

	_, err = os.Stat(filepath.Join(suite.root, uploaded.FullImagePath))
	assert.NoError(suite.T(), err)
	_, err = os.Stat(filepath.Join(suite.root, imaging.ThumbName(uploaded.FullImagePath)))
	assert.NoError(suite.T(), err)
}

func (suite *ImageServiceTestSuite) TestUpload_ThumbnailFailureKeepsRecord() {
	suite.repo.On("Create", suite.context, mock.AnythingOfType("*models.Image")).Return(nil).Once()

	// Allowed extension but undecodable bytes: the original is stored and
	// the row created, then thumbnail generation fails.
	data := []byte("definitely not a png")
	uploaded, err := suite.service.Upload(suite.context, ImageUpload{
		Filename: "broken.png",
		Reader:   bytes.NewReader(data),
		Size:     int64(len(data)),
	})

	require.Error(suite.T(), err)
	require.NotNil(suite.T(), uploaded)

	_, statErr := os.Stat(filepath.Join(suite.root, uploaded.FullImagePath))
	assert.NoError(suite.T(), statErr)
	_, statErr = os.Stat(filepath.Join(suite.root, imaging.ThumbName(uploaded.FullImagePath)))
	assert.True(suite.T(), os.IsNotExist(statErr))
}

func (suite *ImageServiceTestSuite) uploadReal(productID *uuid.UUID, primary bool) *models.Image {
	data := pngBytes(suite.T(), 200, 200)
	if productID != nil && primary {
		suite.repo.On("HasPrimary", suite.context, *productID).Return(false, nil).Once()
	}
	suite.repo.On("Create", suite.context, mock.AnythingOfType("*models.Image")).Return(nil).Once()

	uploaded, err := suite.service.Upload(suite.context, ImageUpload{
		Filename:  "photo.png",
		Reader:    bytes.NewReader(data),
		Size:      int64(len(data)),
		ProductID: productID,
		Primary:   primary,
	})
	require.NoError(suite.T(), err)
	return uploaded
}

func (suite *ImageServiceTestSuite) TestDelete_RemovesBothFilesAndRow() {
	uploaded := suite.uploadReal(nil, false)

	suite.repo.On("GetByID", suite.context, uploaded.ID).Return(uploaded, nil).Once()
	suite.repo.On("Delete", suite.context, uploaded.ID).Return(nil).Once()

	require.NoError(suite.T(), suite.service.Delete(suite.context, uploaded.ID))
	assert.Empty(suite.T(), suite.mediaFiles())
}

func (suite *ImageServiceTestSuite) TestDelete_MissingThumbnailIsNotAnError() {
	uploaded := suite.uploadReal(nil, false)

	// Thumbnail already gone.
	require.NoError(suite.T(), os.Remove(filepath.Join(suite.root, imaging.ThumbName(uploaded.FullImagePath))))

	suite.repo.On("GetByID", suite.context, uploaded.ID).Return(uploaded, nil).Once()
	suite.repo.On("Delete", suite.context, uploaded.ID).Return(nil).Once()

	require.NoError(suite.T(), suite.service.Delete(suite.context, uploaded.ID))
	assert.Empty(suite.T(), suite.mediaFiles())
}

func (suite *ImageServiceTestSuite) TestDelete_PlaceholderIsProtected() {
	data := pngBytes(suite.T(), 120, 80)
	title := models.PlaceholderTitle

	suite.repo.On("Create", suite.context, mock.AnythingOfType("*models.Image")).Return(nil).Once()
	placeholder, err := suite.service.Upload(suite.context, ImageUpload{
		Filename:    "no-product-image.png",
		Reader:      bytes.NewReader(data),
		Size:        int64(len(data)),
		Title:       &title,
		Placeholder: true,
	})
	require.NoError(suite.T(), err)

	suite.repo.On("GetByID", suite.context, placeholder.ID).Return(placeholder, nil).Once()

	err = suite.service.Delete(suite.context, placeholder.ID)
	assert.ErrorIs(suite.T(), err, ErrPlaceholderProtected)
	assert.True(suite.T(), IsValidation(err))

	// Row and files survive.
	suite.repo.AssertNotCalled(suite.T(), "Delete", mock.Anything, mock.Anything)
	_, statErr := os.Stat(filepath.Join(suite.root, placeholder.FullImagePath))
	assert.NoError(suite.T(), statErr)
	_, statErr = os.Stat(filepath.Join(suite.root, imaging.ThumbName(placeholder.FullImagePath)))
	assert.NoError(suite.T(), statErr)
}

func (suite *ImageServiceTestSuite) TestDelete_NotFound() {
	id := uuid.New()
	suite.repo.On("GetByID", suite.context, id).Return(nil, pgx.ErrNoRows).Once()

	assert.ErrorIs(suite.T(), suite.service.Delete(suite.context, id), ErrNotFound)
}

func (suite *ImageServiceTestSuite) TestDeleteByProduct_TearsDownEachImage() {
	productID := uuid.New()
	first := suite.uploadReal(nil, false)
	second := suite.uploadReal(nil, false)
	first.ProductID = &productID
	second.ProductID = &productID

	suite.repo.On("ListByProduct", suite.context, productID).
		Return([]*models.Image{first, second}, nil).Once()
	suite.repo.On("Delete", suite.context, first.ID).Return(nil).Once()
	suite.repo.On("Delete", suite.context, second.ID).Return(nil).Once()

	require.NoError(suite.T(), suite.service.DeleteByProduct(suite.context, productID))
	assert.Empty(suite.T(), suite.mediaFiles())
}

func (suite *ImageServiceTestSuite) TestGetOrCreateByTitle_ReturnsExisting() {
	existing := &models.Image{
		ID:            uuid.New(),
		FullImagePath: "ph.png",
		Title:         func() *string { s := models.PlaceholderTitle; return &s }(),
		IsPlaceholder: true,
	}
	suite.repo.On("GetByTitle", suite.context, models.PlaceholderTitle).Return(existing, nil).Once()

	image, err := suite.service.GetOrCreateByTitle(suite.context, models.PlaceholderTitle, "unused.png")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), existing.ID, image.ID)
	suite.repo.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *ImageServiceTestSuite) TestGetOrCreateByTitle_CreatesPlaceholder() {
	sourcePath := filepath.Join(suite.T().TempDir(), "no-product-image.png")
	require.NoError(suite.T(), os.WriteFile(sourcePath, pngBytes(suite.T(), 120, 80), 0644))

	suite.repo.On("GetByTitle", suite.context, models.PlaceholderTitle).Return(nil, pgx.ErrNoRows).Once()
	suite.repo.On("Create", suite.context, mock.MatchedBy(func(img *models.Image) bool {
		return img.IsPlaceholder && img.ProductID == nil &&
			img.Title != nil && *img.Title == models.PlaceholderTitle
	})).Return(nil).Once()

	image, err := suite.service.GetOrCreateByTitle(suite.context, models.PlaceholderTitle, sourcePath)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), image.IsPlaceholder)

	_, statErr := os.Stat(filepath.Join(suite.root, imaging.ThumbName(image.FullImagePath)))
	assert.NoError(suite.T(), statErr)
}
