package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	repo "storefront/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// mapErr はgormのエラーをリポジトリ共通のエラーに寄せる。
// 接続できない系はErrUnavailable（管理者判定のフォールバックに使う）
func mapErr(err error) error {
	var netErr net.Error
	var connErr *pgconn.ConnectError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, repo.ErrConflict), errors.Is(err, repo.ErrUnavailable):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repo.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repo.ErrConflict
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &connErr),
		errors.As(err, &netErr),
		pgconn.Timeout(err):
		return fmt.Errorf("%w: %v", repo.ErrUnavailable, err)
	default:
		return err
	}
}
