package observability

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ObserveDB times a repository call and records duration plus a coarse
// error class when it fails.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()

	err := fn()

	if err != nil {
		p.DbErrorsTotal.WithLabelValues(op, dbErrClass(err)).Inc()
		p.DbQueryDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return err
	}

	p.DbQueryDuration.WithLabelValues(op, "ok").Observe(time.Since(start).Seconds())
	return nil
}

func dbErrClass(err error) string {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "23503":
			return "fk_violation"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		}
		return "pg_" + pgErr.Code
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	}

	return "unknown"
}
