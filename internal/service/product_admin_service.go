package service

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/apperror"
	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
	"github.com/kjarir/swordrobe-edge-shop/internal/repository"
	"github.com/kjarir/swordrobe-edge-shop/internal/storage"
)

// WorkflowState is the stage a product submission is in.
type WorkflowState int

const (
	StateIdle WorkflowState = iota
	StateValidating
	StateUploading
	StatePersisting
)

func (s WorkflowState) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateUploading:
		return "uploading"
	case StatePersisting:
		return "persisting"
	default:
		return "idle"
	}
}

const batchUploadFailedMessage = "Failed to upload images. Please check your storage configuration and try again."

// ErrSubmissionInProgress rejects a second submission for a product that is
// still being uploaded or saved.
var ErrSubmissionInProgress = apperror.New(apperror.KindConflict, apperror.CodeSubmissionInProgress,
	"This product is already being saved. Please wait for it to finish.")

// ImageUploader stores staged files. *storage.Manager implements it.
type ImageUploader interface {
	UploadMany(ctx context.Context, files []storage.FileUpload, productID *uuid.UUID) storage.UploadBatch
}

// CleanupQueue deletes image URLs in the background. *storage.Janitor
// implements it.
type CleanupQueue interface {
	Enqueue(urls []string)
}

// ProductForm is the admin product form as submitted. Prices and sizes are
// raw text. Images holds existing URLs the admin kept; ID is set when
// editing.
type ProductForm struct {
	ID            *uuid.UUID `json:"id,omitempty"`
	SubmissionKey string     `json:"-"`
	Name          string     `json:"name"`
	Price         string     `json:"price"`
	OriginalPrice string     `json:"original_price"`
	Category      string     `json:"category"`
	Sizes         string     `json:"sizes"`
	Description   string     `json:"description"`
	Material      string     `json:"material"`
	InStock       bool       `json:"in_stock"`
	IsNew         bool       `json:"is_new"`
	IsFeatured    bool       `json:"is_featured"`
	Images        []string   `json:"images"`
}

// SubmitResult is a saved product plus any per-file upload failures that did
// not block the save.
type SubmitResult struct {
	Product      *domain.Product     `json:"product"`
	UploadErrors []storage.FileError `json:"-"`
}

// ProductAdminService runs the product create/edit/delete workflows.
type ProductAdminService interface {
	Submit(ctx context.Context, form ProductForm, staged []storage.FileUpload) (*SubmitResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
	State(key string) WorkflowState
}

type productAdminService struct {
	products repository.ProductRepository
	uploader ImageUploader
	cleanup  CleanupQueue
	logger   *zap.Logger

	mu       sync.Mutex
	inFlight map[string]WorkflowState
}

func NewProductAdminService(
	products repository.ProductRepository,
	uploader ImageUploader,
	cleanup CleanupQueue,
	logger *zap.Logger,
) ProductAdminService {
	return &productAdminService{
		products: products,
		uploader: uploader,
		cleanup:  cleanup,
		logger:   logger,
		inFlight: make(map[string]WorkflowState),
	}
}

// ParseSizes splits a comma-separated size list, trimming entries and
// dropping empty ones.
func ParseSizes(raw string) []string {
	sizes := []string{}
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			sizes = append(sizes, s)
		}
	}
	return sizes
}

func (f ProductForm) key() string {
	switch {
	case f.SubmissionKey != "":
		return f.SubmissionKey
	case f.ID != nil:
		return f.ID.String()
	default:
		return "new:" + strings.ToLower(strings.TrimSpace(f.Name))
	}
}

// validate checks the form in field order and returns the product to save,
// without images.
func (f ProductForm) validate(staged []storage.FileUpload) (*domain.Product, error) {
	if len(f.Images) == 0 && len(staged) == 0 {
		return nil, apperror.Validation(apperror.CodeNoImages, "Please upload at least one image")
	}

	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, apperror.Validation(apperror.CodeRequiredField, "Product name is required")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(f.Price))
	if err != nil || !price.IsPositive() {
		return nil, apperror.Validation(apperror.CodeInvalidPrice, "Valid price is required")
	}

	var originalPrice *decimal.Decimal
	if raw := strings.TrimSpace(f.OriginalPrice); raw != "" {
		op, err := decimal.NewFromString(raw)
		if err != nil || !op.IsPositive() {
			return nil, apperror.Validation(apperror.CodeInvalidPrice, "Original price must be a positive number")
		}
		originalPrice = &op
	}

	sizes := ParseSizes(f.Sizes)
	if len(sizes) == 0 {
		return nil, apperror.Validation(apperror.CodeNoSizes, "At least one size is required")
	}

	description := strings.TrimSpace(f.Description)
	if description == "" {
		return nil, apperror.Validation(apperror.CodeRequiredField, "Description is required")
	}

	material := strings.TrimSpace(f.Material)
	if material == "" {
		return nil, apperror.Validation(apperror.CodeRequiredField, "Material is required")
	}

	category := strings.ToLower(strings.TrimSpace(f.Category))
	if !domain.IsProductCategory(category) {
		return nil, apperror.Validation(apperror.CodeInvalidCategory,
			"Category must be one of: "+strings.Join(domain.ProductCategories, ", "))
	}

	if err := storage.CheckImageLimit(len(f.Images), len(staged)); err != nil {
		return nil, err
	}
	for _, file := range staged {
		if err := storage.ValidateFile(file); err != nil {
			return nil, apperror.Validation(apperror.CodeOf(err), file.Name+": "+apperror.MessageOf(err))
		}
	}

	return &domain.Product{
		Name:          name,
		Price:         price,
		OriginalPrice: originalPrice,
		Category:      category,
		Sizes:         sizes,
		Description:   description,
		Material:      material,
		InStock:       f.InStock,
		IsNew:         f.IsNew,
		IsFeatured:    f.IsFeatured,
	}, nil
}

// begin claims key for a new submission.
func (s *productAdminService) begin(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return ErrSubmissionInProgress
	}
	s.inFlight[key] = StateValidating
	return nil
}

func (s *productAdminService) advance(key string, state WorkflowState) {
	s.mu.Lock()
	s.inFlight[key] = state
	s.mu.Unlock()
}

func (s *productAdminService) finish(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

// State reports the stage of the submission under key.
func (s *productAdminService) State(key string) WorkflowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[key]
}

// Submit validates the form, uploads staged files and saves the product.
// Upload failures are tolerated as long as at least one image remains; they
// are reported in SubmitResult.UploadErrors.
func (s *productAdminService) Submit(ctx context.Context, form ProductForm, staged []storage.FileUpload) (*SubmitResult, error) {
	key := form.key()
	if err := s.begin(key); err != nil {
		return nil, err
	}
	defer s.finish(key)

	product, err := form.validate(staged)
	if err != nil {
		return nil, err
	}

	var existing *domain.Product
	if form.ID != nil {
		existing, err = s.products.FindByID(ctx, *form.ID)
		if err != nil {
			return nil, err
		}
	}
	if err := checkKeptImages(existing, form.Images); err != nil {
		return nil, err
	}

	s.advance(key, StateUploading)
	images := append([]string{}, form.Images...)
	var batch storage.UploadBatch
	if len(staged) > 0 {
		batch = s.uploader.UploadMany(ctx, staged, form.ID)
		if len(batch.URLs) == 0 && len(images) == 0 {
			return nil, batchUploadError(batch.Errors)
		}
		for _, fe := range batch.Errors {
			s.logger.Warn("image upload skipped",
				zap.String("file", fe.File),
				zap.String("code", apperror.CodeOf(fe.Err)),
			)
		}
		images = append(images, batch.URLs...)
	}
	product.Images = images

	s.advance(key, StatePersisting)
	if existing == nil {
		err = s.products.Create(ctx, product)
	} else {
		product.ID = existing.ID
		product.CreatedAt = existing.CreatedAt
		err = s.products.Update(ctx, product)
	}
	if err != nil {
		s.cleanup.Enqueue(batch.URLs)
		s.logger.Error("failed to save product",
			zap.String("name", product.Name),
			zap.String("code", apperror.CodeOf(err)),
			zap.Error(err),
		)
		return nil, err
	}

	if existing != nil {
		s.cleanup.Enqueue(storage.DiffImages(existing.Images, product.Images))
	}

	s.logger.Info("product saved",
		zap.Stringer("product_id", product.ID),
		zap.Bool("created", existing == nil),
		zap.Int("images", len(product.Images)),
		zap.Int("upload_errors", len(batch.Errors)),
	)
	return &SubmitResult{Product: product, UploadErrors: batch.Errors}, nil
}

// checkKeptImages rejects kept image URLs the product does not already own.
// A new product has nothing to keep.
func checkKeptImages(existing *domain.Product, kept []string) error {
	if len(kept) == 0 {
		return nil
	}
	if existing == nil {
		return apperror.Validation(apperror.CodeUnknownImage, "A new product cannot reference existing images")
	}
	for _, url := range kept {
		if !slices.Contains(existing.Images, url) {
			return apperror.Validation(apperror.CodeUnknownImage, "Image does not belong to this product")
		}
	}
	return nil
}

// batchUploadError reports a submission where every upload failed. Bucket
// errors keep their own message since they tell the admin what to fix.
func batchUploadError(errs []storage.FileError) error {
	if len(errs) == 0 {
		return apperror.New(apperror.KindUpload, apperror.CodeUploadFailed, batchUploadFailedMessage)
	}
	first := errs[0].Err
	if apperror.CodeOf(first) == apperror.CodeBucketNotFound {
		return apperror.Wrap(first, apperror.KindUpload, apperror.CodeBucketNotFound, apperror.MessageOf(first))
	}
	return apperror.Wrap(first, apperror.KindUpload, apperror.CodeUploadFailed, batchUploadFailedMessage)
}

// Delete removes the product row, then schedules its images for cleanup.
// Images are only released once the row is gone.
func (s *productAdminService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete product", zap.Stringer("product_id", id), zap.Error(err))
		return err
	}
	s.cleanup.Enqueue(product.Images)
	s.logger.Info("product deleted", zap.Stringer("product_id", id), zap.Int("images", len(product.Images)))
	return nil
}
