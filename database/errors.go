package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgErrUniqueViolation    = "23505"
	mysqlErrDuplicateEntry  = 1062
	sqliteUniqueFailureText = "UNIQUE constraint failed"
)

var ErrUniqueViolation = errors.New("unique constraint violation")

// TranslateError maps driver specific constraint failures to ErrUniqueViolation.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if IsUniqueViolation(err) {
		return errors.Join(ErrUniqueViolation, err)
	}
	return err
}

func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrUniqueViolation) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDuplicateEntry
	}

	return strings.Contains(err.Error(), sqliteUniqueFailureText)
}
