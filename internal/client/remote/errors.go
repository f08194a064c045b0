package remote

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirkbardini/foodlogkm-sub000/internal/common"
)

// mapError sorts transport failures into common.ErrRemoteUnavailable and
// wraps everything else as a logical remote error.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrRemoteUnavailable) {
		return err
	}

	var connErr *pgconn.ConnectError
	var pgErr *pgconn.PgError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.As(err, &connErr),
		errors.As(err, &netErr):
		return fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
	case errors.As(err, &pgErr):
		// SQLSTATE class 08: connection exception.
		if strings.HasPrefix(pgErr.Code, "08") {
			return fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
		}
	case pgconn.SafeToRetry(err):
		return fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
	}
	return fmt.Errorf("remote error: %w", err)
}
