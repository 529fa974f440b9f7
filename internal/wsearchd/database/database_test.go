package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	werrors "github.com/wrale/wrale-search/internal/wsearchd/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		code     string
	}{
		{
			name:     "unique_violation",
			err:      &pq.Error{Code: "23505"},
			sentinel: werrors.ErrConflict,
			code:     "CONFLICT",
		},
		{
			name:     "check_violation",
			err:      &pq.Error{Code: "23514", Message: "ctr out of range"},
			sentinel: werrors.ErrInvalidInput,
			code:     "INVALID_INPUT",
		},
		{
			name:     "no_rows",
			err:      fmt.Errorf("scan: %w", sql.ErrNoRows),
			sentinel: werrors.ErrNotFound,
			code:     "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err, "Test.Op")
			assert.ErrorIs(t, mapped, tt.sentinel)

			var domainErr *werrors.Error
			assert.True(t, errors.As(mapped, &domainErr))
			assert.Equal(t, tt.code, domainErr.Code)
			assert.Equal(t, "Test.Op", domainErr.Op)
		})
	}
}

func TestMapError_Internal(t *testing.T) {
	cause := errors.New("connection reset")
	mapped := MapError(cause, "Test.Op")

	var domainErr *werrors.Error
	assert.True(t, errors.As(mapped, &domainErr))
	assert.Equal(t, "INTERNAL", domainErr.Code)
	assert.ErrorIs(t, mapped, cause)
}

func TestMapError_AlreadyMapped(t *testing.T) {
	original := werrors.NewError("NOT_FOUND", "opportunity not found", "Inner.Op", werrors.ErrNotFound)
	assert.Same(t, original, MapError(original, "Outer.Op"))
	assert.Nil(t, MapError(nil, "Outer.Op"))
}

func TestDateString(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	assert.Equal(t, "2026-10-14", DateString(time.Date(2026, 10, 15, 1, 0, 0, 0, loc)))
}
