package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kjarir/swordrobe-edge-shop/internal/apperror"
)

// SQLSTATE codes the catalog reacts to.
const (
	pgNotNullViolation          = "23502"
	pgUniqueViolation           = "23505"
	pgCheckViolation            = "23514"
	pgInsufficientPrivilege     = "42501"
	pgInvalidTextRepresentation = "22P02"
	pgArraySubscriptError       = "2202E"
)

var (
	ErrProductNotFound      = apperror.NotFound("product not found")
	ErrCategoryNotFound     = apperror.NotFound("category not found")
	ErrUserNotFound         = apperror.NotFound("user not found")
	ErrRefreshTokenNotFound = apperror.NotFound("refresh token not found")
	ErrRefreshTokenRevoked  = apperror.New(apperror.KindPermission, apperror.CodePermissionDenied,
		"refresh token has been revoked")

	ErrUserAlreadyExists = apperror.New(apperror.KindConflict, apperror.CodeUniqueViolation,
		"user with this email already exists")
)

// classify turns a driver error into an *apperror.Error. It is the only
// place SQLSTATE codes are inspected. notFound is returned for sql.ErrNoRows.
func classify(err error, entity, op string, notFound *apperror.Error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		if notFound == nil {
			return apperror.NotFound(entity + " not found")
		}
		return notFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.Wrap(err, apperror.KindUnavailable, apperror.CodeBackendUnavailable,
			"The data service did not respond in time. Please try again.")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgNotNullViolation:
			return apperror.Wrap(err, apperror.KindValidation, apperror.CodeRequiredField,
				"Missing required field. Please fill in all required fields.")
		case pgUniqueViolation:
			return apperror.Wrap(err, apperror.KindConflict, apperror.CodeUniqueViolation,
				fmt.Sprintf("A %s with this %s already exists.", entity, uniqueField(pgErr)))
		case pgCheckViolation:
			return apperror.Wrap(err, apperror.KindValidation, apperror.CodeCheckViolation,
				"Invalid category or data format. Please check all fields.")
		case pgInsufficientPrivilege:
			return apperror.Wrap(err, apperror.KindPermission, apperror.CodePermissionDenied,
				"Permission denied. Please check the database access policies.")
		case pgInvalidTextRepresentation, pgArraySubscriptError:
			return apperror.Wrap(err, apperror.KindValidation, apperror.CodeMalformedArray,
				"Invalid images or sizes format. Please ensure proper formatting.")
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return apperror.Wrap(err, apperror.KindUnavailable, apperror.CodeBackendUnavailable,
			"The data service is unavailable. Please try again.")
	}

	return apperror.Wrap(err, apperror.KindPersistence, apperror.CodeUnknown,
		fmt.Sprintf("Failed to %s %s", op, entity))
}

func uniqueField(pgErr *pgconn.PgError) string {
	c := pgErr.ConstraintName
	switch {
	case strings.Contains(c, "slug"):
		return "slug"
	case strings.Contains(c, "email"):
		return "email"
	default:
		return "name"
	}
}

// affected maps a zero-row write to notFound.
func affected(result sql.Result, entity, op string, notFound *apperror.Error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return classify(err, entity, op, notFound)
	}
	if n == 0 {
		return classify(sql.ErrNoRows, entity, op, notFound)
	}
	return nil
}
