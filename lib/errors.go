package lib

import (
	"database/sql"
	"errors"
	"perfumery_server/structs"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Database errors
var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid data")
)

// Auth errors
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("expired token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrEmailTaken         = errors.New("email is already registered")
)

// Shop errors
var (
	ErrProductNotFound      = errors.New("product not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrOrderNotPayable      = errors.New("order cannot be paid in its current status")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidCard          = errors.New("invalid card details")
	ErrCardExpired          = errors.New("card has expired")
	ErrPaymentUnavailable   = errors.New("payment provider is not available")
	ErrStorageUnavailable   = errors.New("image storage is not configured")
	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrImageTooLarge        = errors.New("image is too large")
)

// Cart reducer errors live next to the reducer
var (
	ErrOutOfStock      = structs.ErrOutOfStock
	ErrItemNotInCart   = structs.ErrItemNotInCart
	ErrInvalidQuantity = structs.ErrInvalidQuantity
)

// SQLState extracts the SQLSTATE code from either supported Postgres driver
func SQLState(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	return ""
}

func MapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	switch SQLState(err) {
	case "23505": // unique_violation
		return ErrConflict
	case "23503", "23502", "23514", "22P02": // fk, not null, check, invalid text repr
		return ErrInvalid
	case "P0002": // no_data_found
		return ErrNotFound
	}
	return err
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrConflict)
}
