package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("x")), true},
		{"wrapped explicit", fmt.Errorf("store: %w", NewTransientError(errors.New("x"))), true},
		{"plain", errors.New("no rows in result set"), false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"connection failure", fmt.Errorf("q: %w", &pgconn.PgError{Code: "08006"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"timeout", &net.DNSError{IsTimeout: true}, true},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientSQLState(t *testing.T) {
	assert.True(t, IsTransientSQLState("08001"))
	assert.True(t, IsTransientSQLState("40P01"))
	assert.False(t, IsTransientSQLState("42601"))
}
