// Package storage manages product image assets in a public object bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/apperror"
)

const (
	// MaxFileSize is the largest accepted image, in bytes.
	MaxFileSize = 5 * 1024 * 1024
	// MaxImagesPerProduct caps existing plus staged images on one product.
	MaxImagesPerProduct = 10

	maxNameLength   = 50
	tokenLength     = 13
	deleteWorkers   = 8
	tempNamespace   = "temp"
	defaultTimeout  = 30 * time.Second
	octetStreamType = "application/octet-stream"
)

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

var safeExtension = regexp.MustCompile(`^[a-z0-9]{1,10}$`)

// ErrEmptyPath is returned when a URL does not resolve to an object path.
var ErrEmptyPath = errors.New("could not extract object path from url")

// FileUpload is a staged image received from a client.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f FileUpload) Size() int64 {
	return int64(len(f.Data))
}

// FileError attributes an upload failure to a file.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string {
	return e.File + ": " + apperror.MessageOf(e.Err)
}

// UploadBatch is the outcome of UploadMany. URLs holds successful uploads in
// input order; Errors holds one entry per failed file.
type UploadBatch struct {
	URLs   []string
	Errors []FileError
}

// Manager validates, uploads and deletes product images.
type Manager struct {
	store   ObjectStore
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
	token   func() string
}

func NewManager(store ObjectStore, logger *zap.Logger, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Manager{
		store:   store,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
		token:   randomToken,
	}
}

// Bucket returns the bucket name of the underlying store.
func (m *Manager) Bucket() string {
	return m.store.Bucket()
}

// CheckBucket reports whether the bucket is reachable. Only a missing bucket
// counts as unavailable; other probe failures are assumed transient.
func (m *Manager) CheckBucket(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.store.Probe(ctx)
	if err == nil {
		return true
	}
	if apperror.CodeOf(err) == apperror.CodeBucketNotFound {
		m.logger.Error("storage bucket not found", zap.String("bucket", m.store.Bucket()), zap.Error(err))
		return false
	}
	m.logger.Warn("storage bucket probe failed", zap.String("bucket", m.store.Bucket()), zap.Error(err))
	return true
}

// DetectType returns the effective MIME type of f. A declared type wins
// unless it is missing or generic, in which case the content is sniffed.
func DetectType(f FileUpload) string {
	ct := strings.ToLower(strings.TrimSpace(f.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" || ct == octetStreamType {
		return mimetype.Detect(f.Data).String()
	}
	return ct
}

// ValidateFile checks type and size. It never touches the store.
func ValidateFile(f FileUpload) error {
	if _, ok := allowedTypes[DetectType(f)]; !ok {
		return apperror.Validation(apperror.CodeInvalidFileType,
			"Invalid file type. Only JPEG, PNG, GIF, and WebP images are allowed.")
	}
	if f.Size() > MaxFileSize {
		return apperror.Validation(apperror.CodeFileTooLarge, "File too large. Maximum size is 5MB.")
	}
	return nil
}

// CheckImageLimit rejects a submission whose existing plus staged images
// exceed MaxImagesPerProduct.
func CheckImageLimit(existing, staged int) error {
	if existing+staged > MaxImagesPerProduct {
		return apperror.Validation(apperror.CodeTooManyImages,
			fmt.Sprintf("Maximum %d images allowed per product", MaxImagesPerProduct))
	}
	return nil
}

// SanitizeName keeps [A-Za-z0-9.-], replaces everything else with '_' and
// caps the result length.
func SanitizeName(name string) string {
	s := unsafeNameChars.ReplaceAllString(name, "_")
	if len(s) > maxNameLength {
		s = s[:maxNameLength]
	}
	return s
}

func extension(f FileUpload, contentType string) string {
	if ext := strings.ToLower(strings.TrimPrefix(path.Ext(f.Name), ".")); safeExtension.MatchString(ext) {
		return ext
	}
	if ext, ok := allowedTypes[contentType]; ok {
		return ext
	}
	return "jpg"
}

// ObjectPath builds the storage path for f. Files for an existing product are
// stored under its id; files for a product not yet created go under a unique
// temp/ prefix.
func (m *Manager) ObjectPath(f FileUpload, productID *uuid.UUID) string {
	stamp := strconv.FormatInt(m.now().UnixMilli(), 10)
	token := m.token()

	base := strings.TrimSuffix(f.Name, path.Ext(f.Name))
	name := SanitizeName(base) + "." + extension(f, DetectType(f))

	if productID != nil {
		return productID.String() + "/" + stamp + "-" + token + "-" + name
	}
	return tempNamespace + "/" + stamp + "-" + token + "/" + name
}

// UploadOne validates and stores one file, returning its public URL.
func (m *Manager) UploadOne(ctx context.Context, f FileUpload, productID *uuid.UUID) (string, error) {
	if err := ValidateFile(f); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	objectPath := m.ObjectPath(f, productID)
	if err := m.store.Put(ctx, objectPath, bytes.NewReader(f.Data), DetectType(f)); err != nil {
		m.logger.Error("image upload failed",
			zap.String("file", f.Name),
			zap.String("path", objectPath),
			zap.String("code", apperror.CodeOf(err)),
			zap.Error(err),
		)
		return "", err
	}

	url := m.store.PublicURL(objectPath)
	if url == "" {
		return "", apperror.New(apperror.KindUpload, apperror.CodeUploadFailed, "Failed to get public URL for uploaded image")
	}
	return url, nil
}

// UploadMany uploads files one at a time. A failure is attributed to its file
// and does not stop the remaining uploads.
func (m *Manager) UploadMany(ctx context.Context, files []FileUpload, productID *uuid.UUID) UploadBatch {
	batch := UploadBatch{URLs: []string{}}
	for _, f := range files {
		url, err := m.UploadOne(ctx, f, productID)
		if err != nil {
			batch.Errors = append(batch.Errors, FileError{File: f.Name, Err: err})
			continue
		}
		batch.URLs = append(batch.URLs, url)
	}
	return batch
}

// ExtractPath resolves an image URL to its object path within bucket. It
// accepts canonical public URLs containing "/<bucket>/" and bare relative
// paths, dropping any query string.
func ExtractPath(bucket, rawURL string) (string, error) {
	var p string
	if strings.Contains(rawURL, bucket) {
		parts := strings.Split(rawURL, "/")
		idx := -1
		for i, part := range parts {
			if part == bucket {
				idx = i
				break
			}
		}
		if idx >= 0 {
			p = strings.Join(parts[idx+1:], "/")
		} else {
			p = rawURL[strings.Index(rawURL, bucket)+len(bucket):]
			p = strings.TrimPrefix(p, "/")
		}
	} else {
		p = strings.TrimPrefix(rawURL, "/")
	}

	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyPath, rawURL)
	}
	return p, nil
}

// DeleteOne removes the object behind url.
func (m *Manager) DeleteOne(ctx context.Context, url string) error {
	objectPath, err := ExtractPath(m.store.Bucket(), url)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.store.Remove(ctx, objectPath); err != nil {
		return fmt.Errorf("failed to delete image %s: %w", objectPath, err)
	}
	return nil
}

// DeleteMany removes urls in parallel. Individual failures are logged and
// otherwise ignored.
func (m *Manager) DeleteMany(ctx context.Context, urls []string) {
	p := pool.New().WithMaxGoroutines(deleteWorkers)
	for _, url := range urls {
		p.Go(func() {
			if err := m.DeleteOne(ctx, url); err != nil {
				m.logger.Warn("image cleanup failed", zap.String("url", url), zap.Error(err))
			}
		})
	}
	p.Wait()
}

// DiffImages returns the urls in before that are absent from after.
func DiffImages(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, u := range after {
		keep[u] = struct{}{}
	}
	removed := []string{}
	for _, u := range before {
		if _, ok := keep[u]; !ok {
			removed = append(removed, u)
		}
	}
	return removed
}

func randomToken() string {
	s := strconv.FormatUint(rand.Uint64(), 36)
	if len(s) < tokenLength {
		s = strings.Repeat("0", tokenLength-len(s)) + s
	}
	return s[:tokenLength]
}
