package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPgError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrAlreadyExists},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapPgError("insert", tt.err), tt.want)
		})
	}

	other := errors.New("connection reset")
	err := mapPgError("insert", other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, ErrAlreadyExists)
}
