package errors

// Postgres helpers used by the audit repository

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrUniqueViolation           = "23505"
	pgErrNotNullViolation          = "23502"
	pgErrCheckViolation            = "23514"
	pgErrStringDataRightTruncation = "22001"
	pgErrInvalidTextRepresentation = "22P02"
	pgErrSerializationFailure      = "40001"
	pgErrDeadlockDetected          = "40P01"
	pgErrLockNotAvailable          = "55P03"
	pgErrCannotConnectNow          = "57P03"
)

// ExtractPgError returns the *pgconn.PgError at the root of err
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(Root(err), &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// DBErrorCode maps a Postgres error to an ErrorCode; ok is false for non pg errors
func DBErrorCode(err error) (ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}
	switch pgErr.Code {
	case pgErrUniqueViolation:
		return ErrorCodeDuplicateKey, true
	case pgErrNotNullViolation, pgErrCheckViolation:
		return ErrorCodeValidation, true
	case pgErrStringDataRightTruncation, pgErrInvalidTextRepresentation:
		return ErrorCodeInvalidArgument, true
	case pgErrCannotConnectNow:
		return ErrorCodeUnavailable, true
	}
	return ErrorCodeDB, true
}

// FromPostgresf wraps a pg error under its mapped code
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, fmt.Sprintf(format, a...))
}

// Retryable reports whether a database error is transient contention worth retrying
// Local cancellation is never retryable
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pgErr, ok := ExtractPgError(err); ok {
		switch pgErr.Code {
		case pgErrSerializationFailure, pgErrDeadlockDetected, pgErrLockNotAvailable:
			return true
		}
		return false
	}
	s := strings.ToLower(Root(err).Error())
	return strings.Contains(s, "deadlock detected") ||
		strings.Contains(s, "could not serialize access") ||
		strings.Contains(s, "commit unexpectedly resulted in rollback")
}
