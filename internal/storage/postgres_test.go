package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
)

func TestIsTransientError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "Context deadline exceeded",
			err:      context.DeadlineExceeded,
			expected: true,
		},
		{
			name:     "Wrapped context deadline exceeded",
			err:      fmt.Errorf("operation failed: %w", context.DeadlineExceeded),
			expected: true,
		},
		{
			name:     "GORM record not found",
			err:      gorm.ErrRecordNotFound,
			expected: false,
		},
		{
			name:     "Connection exception pg error",
			err:      &pgconn.PgError{Code: "08006"},
			expected: true,
		},
		{
			name:     "Insufficient resources pg error",
			err:      &pgconn.PgError{Code: "53300"},
			expected: true,
		},
		{
			name:     "Unique violation pg error",
			err:      &pgconn.PgError{Code: "23505"},
			expected: false,
		},
		{
			name:     "Connection refused string match",
			err:      errors.New("dial tcp 127.0.0.1:5432: connection refused"),
			expected: true,
		},
		{
			name:     "Generic error",
			err:      errors.New("some validation problem"),
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, isTransientError(tc.err))
		})
	}
}

func TestCheckConstraintViolation(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{
			name:     "Record not found maps to ErrNotFound",
			err:      gorm.ErrRecordNotFound,
			sentinel: apperrors.ErrNotFound,
		},
		{
			name:     "Unique violation maps to ErrDuplicate",
			err:      &pgconn.PgError{Code: "23505", ConstraintName: "idx_leads_email"},
			sentinel: apperrors.ErrDuplicate,
		},
		{
			name:     "Foreign key violation maps to ErrBadRequest",
			err:      &pgconn.PgError{Code: "23503", ConstraintName: "fk_steps_sequence"},
			sentinel: apperrors.ErrBadRequest,
		},
		{
			name:     "Not null violation maps to ErrBadRequest",
			err:      &pgconn.PgError{Code: "23502", ColumnName: "company_id"},
			sentinel: apperrors.ErrBadRequest,
		},
		{
			name:     "Deadlock maps to ErrDatabase",
			err:      &pgconn.PgError{Code: "40P01"},
			sentinel: apperrors.ErrDatabase,
		},
		{
			name:     "Unknown pg error maps to ErrDatabase",
			err:      &pgconn.PgError{Code: "XX000"},
			sentinel: apperrors.ErrDatabase,
		},
		{
			name:     "Generic error maps to ErrDatabase",
			err:      errors.New("boom"),
			sentinel: apperrors.ErrDatabase,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := checkConstraintViolation(tc.err)
			assert.True(t, errors.Is(mapped, tc.sentinel), "expected %v to map to %v, got %v", tc.err, tc.sentinel, mapped)
		})
	}

	assert.NoError(t, checkConstraintViolation(nil))
}

func TestTenantNamer(t *testing.T) {
	namer := tenantNamer{schemaName: "leadpilot_acme"}
	assert.Equal(t, `"leadpilot_acme".touchpoints`, namer.TableName("touchpoints"))
}
