package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	repo "storefront/internal/repository"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapErr(t *testing.T) {
	other := errors.New("syntax error at or near")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "record not found", in: fmt.Errorf("find: %w", gorm.ErrRecordNotFound), want: repo.ErrNotFound},
		{name: "duplicate", in: gorm.ErrDuplicatedKey, want: repo.ErrConflict},
		{name: "bad conn", in: driver.ErrBadConn, want: repo.ErrUnavailable},
		{name: "deadline", in: context.DeadlineExceeded, want: repo.ErrUnavailable},
		{name: "dial", in: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, want: repo.ErrUnavailable},
		{name: "already mapped", in: repo.ErrConflict, want: repo.ErrConflict},
		{name: "other", in: other, want: other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErr(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
