package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("insert appointment: %w", &pgconn.PgError{Code: CodeExclusionViolation, ConstraintName: "appointments_no_overlap"})

	assert.True(t, HasCode(err, CodeExclusionViolation))
	assert.False(t, HasCode(err, CodeUniqueViolation))
	assert.False(t, HasCode(errors.New("boom"), CodeExclusionViolation))
	assert.Equal(t, "appointments_no_overlap", ConstraintName(err))
	assert.Empty(t, ConstraintName(errors.New("boom")))
}
