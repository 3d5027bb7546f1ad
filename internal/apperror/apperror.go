// Package apperror carries the classified failures that cross package
// boundaries. Classification happens once, where the failure is first
// observed (repository or object store); callers only inspect Kind and Code.
package apperror

import (
	"errors"
	"fmt"
)

// Kind is the broad failure class used to pick HTTP status and UI behaviour.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindUpload      Kind = "upload"
	KindPersistence Kind = "persistence"
	KindNotFound    Kind = "not_found"
	KindPermission  Kind = "permission_denied"
	KindConflict    Kind = "conflict"
	KindUnavailable Kind = "unavailable"
	KindInternal    Kind = "internal"
)

// Codes refine a Kind. They are stable and safe to expose to clients.
const (
	CodeRequiredField        = "missing_required_field"
	CodeInvalidPrice         = "invalid_price"
	CodeNoImages             = "no_images"
	CodeNoSizes              = "no_sizes"
	CodeTooManyImages        = "too_many_images"
	CodeUnknownImage         = "unknown_image"
	CodeInvalidFileType      = "invalid_file_type"
	CodeFileTooLarge         = "file_too_large"
	CodeInvalidSlug          = "invalid_slug"
	CodeInvalidCategory      = "invalid_category"
	CodeBucketNotFound       = "bucket_not_found"
	CodePayloadTooLarge      = "payload_too_large"
	CodeInvalidRequest       = "invalid_request"
	CodeUploadFailed         = "upload_failed"
	CodeUniqueViolation      = "unique_violation"
	CodeCheckViolation       = "check_violation"
	CodeMalformedArray       = "malformed_array"
	CodePermissionDenied     = "permission_denied"
	CodeNotFound             = "not_found"
	CodeCategoryInUse        = "category_in_use"
	CodeSubmissionInProgress = "submission_in_progress"
	CodeBackendUnavailable   = "backend_unavailable"
	CodeUnknown              = "unknown"
)

// Error is a classified failure with a user-facing message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind and Code so callers can use errors.Is against the
// sentinel values below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

// Sentinels for errors.Is checks.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrUpload     = &Error{Kind: KindUpload}
	ErrConflict   = &Error{Kind: KindConflict}
)

// KindOf returns the Kind of err, or KindInternal when err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the Code of err, or CodeUnknown when err is unclassified.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
