package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"net"
	"strconv"
	"strings"

	"auction-engine/internal/domain"
	"auction-engine/pkg/utils"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case MySQL, Postgres:
		return Dialect(driver), nil
	}
	return "", errors.Errorf("unsupported sql dialect %q", driver)
}

// Rebind rewrites ? placeholders into the dialect's native form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// conn is shared by every repository of the package.
type conn struct {
	db      *sql.DB
	dialect Dialect
	retry   utils.RetryPolicy
}

func (c *conn) q(query string) string {
	return c.dialect.Rebind(query)
}

// do runs fn with bounded backoff on connectivity failures. Exhaustion is
// reported as domain.ErrTransient.
func (c *conn) do(ctx context.Context, op string, fn func() error) error {
	err := utils.Retry(ctx, c.retry, IsConnectionError, fn)
	if err != nil && IsConnectionError(err) {
		return errors.Wrapf(domain.ErrTransient, "%s: %v", op, err)
	}
	return err
}

// IsConnectionError reports failures worth retrying against a fresh connection.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.SafeToRetry(err)
}

// amountScale matches the DECIMAL scale of the amount columns so the
// compare-and-update token is the exact stored value.
const amountScale = 6

func amountParam(amount float64) string {
	return strconv.FormatFloat(amount, 'f', amountScale, 64)
}
