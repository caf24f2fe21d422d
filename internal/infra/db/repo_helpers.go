package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var errDBUnavailable = errors.New("db unavailable")

const pgUniqueViolation = "23505"

func isUniqueViolation(err error, constraintFragment string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != pgUniqueViolation {
		return false
	}
	if constraintFragment == "" {
		return true
	}
	return strings.Contains(pgErr.ConstraintName, constraintFragment)
}

func stringPtrIfNotEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
