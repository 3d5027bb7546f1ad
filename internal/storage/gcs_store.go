package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const defaultGCSPublicBase = "https://storage.googleapis.com"

// GCSStore is an ObjectStore backed by a Google Cloud Storage bucket. The
// bucket must allow public reads for the generated URLs to render.
type GCSStore struct {
	client     *gcs.Client
	bucket     string
	publicBase string
}

func NewGCSStore(ctx context.Context, bucket, publicBase string, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if publicBase == "" {
		publicBase = defaultGCSPublicBase
	}
	return &GCSStore{client: client, bucket: bucket, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

func (s *GCSStore) Bucket() string {
	return s.bucket
}

func (s *GCSStore) Probe(ctx context.Context) error {
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{})
	_, err := it.Next()
	if err == nil || errors.Is(err, iterator.Done) {
		return nil
	}
	return s.classify(err)
}

func (s *GCSStore) Put(ctx context.Context, objectPath string, r io.Reader, contentType string) error {
	obj := s.client.Bucket(s.bucket).Object(objectPath).If(gcs.Conditions{DoesNotExist: true})

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = CacheControl

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return s.classify(err)
	}
	if err := w.Close(); err != nil {
		return s.classify(err)
	}
	return nil
}

func (s *GCSStore) PublicURL(objectPath string) string {
	return s.publicBase + "/" + s.bucket + "/" + strings.TrimLeft(objectPath, "/")
}

func (s *GCSStore) Remove(ctx context.Context, objectPath string) error {
	err := s.client.Bucket(s.bucket).Object(objectPath).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) classify(err error) error {
	if errors.Is(err, gcs.ErrBucketNotExist) {
		return classifyStatus(s.bucket, http.StatusNotFound, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(s.bucket, apiErr.Code, err)
	}
	return classifyStatus(s.bucket, 0, err)
}
