package repository

import (
	"errors"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

var (
	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrSeatUnavailable is returned when the conditional seat decrement matched no row.
	ErrSeatUnavailable = errors.New("no seat available")
	// ErrAlreadyEnrolled is returned when the payment was already claimed as enrolled.
	ErrAlreadyEnrolled = errors.New("payment already enrolled")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func normalizePage(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size, (page - 1) * size
}

// jsonArg passes raw JSON to a jsonb parameter as text; lib/pq would otherwise encode []byte as bytea.
func jsonArg(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullJSONArg(v types.NullJSONText) interface{} {
	if !v.Valid {
		return nil
	}
	return jsonArg(v.JSONText)
}
