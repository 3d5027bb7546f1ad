package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/kjarir/swordrobe-edge-shop/internal/apperror"
)

// DefaultBucket is the bucket product images live in.
const DefaultBucket = "product-images"

// CacheControl is attached to every uploaded object.
const CacheControl = "public, max-age=3600"

// ObjectStore is the object-storage collaborator. Implementations classify
// their own failures into *apperror.Error values with KindUpload.
type ObjectStore interface {
	// Bucket returns the bucket name used in public URLs.
	Bucket() string
	// Probe verifies the bucket exists and is reachable.
	Probe(ctx context.Context) error
	// Put stores r at path. It must not overwrite an existing object.
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	// PublicURL resolves the public read URL of path.
	PublicURL(path string) string
	// Remove deletes path. Removing a missing object is not an error.
	Remove(ctx context.Context, path string) error
}

func bucketNotFoundMessage(bucket string) string {
	return fmt.Sprintf("Storage bucket %q not found or not accessible. Please verify the bucket exists, "+
		"is set to public, and that storage policies allow uploads.", bucket)
}

const (
	invalidRequestMessage = "Invalid file or request. Please check file format and size."
	tooLargeMessage       = "File too large. Maximum size is 5MB."
	uploadFailedMessage   = "Failed to upload image"
)

// classifyStatus maps a storage backend status code to an upload error.
func classifyStatus(bucket string, status int, err error) *apperror.Error {
	switch status {
	case http.StatusNotFound:
		return apperror.Wrap(err, apperror.KindUpload, apperror.CodeBucketNotFound, bucketNotFoundMessage(bucket))
	case http.StatusBadRequest, http.StatusConflict, http.StatusPreconditionFailed:
		return apperror.Wrap(err, apperror.KindUpload, apperror.CodeInvalidRequest, invalidRequestMessage)
	case http.StatusRequestEntityTooLarge:
		return apperror.Wrap(err, apperror.KindUpload, apperror.CodePayloadTooLarge, tooLargeMessage)
	default:
		return apperror.Wrap(err, apperror.KindUpload, apperror.CodeUploadFailed, uploadFailedMessage)
	}
}
