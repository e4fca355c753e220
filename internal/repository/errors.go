package repository

import (
	"context"
	"database/sql/driver"
	"errors"

	"pomi/internal/apperror"
	"pomi/internal/schema"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation  = "23505"
	pgNotNullViolation = "23502"
)

const (
	msgDuplicate = "Cette valeur existe déjà"
	msgRequired  = "Un champ obligatoire est manquant"
	msgNotFound  = "Enregistrement introuvable"
	msgNoConn    = "Connexion à la base de données impossible"
)

// KeyResolver maps a unique constraint name to the business key it protects.
type KeyResolver interface {
	BusinessKeyFor(constraint string) (schema.BusinessKey, bool)
}

// TranslateError classifies a storage error using the driver's error code and
// constraint name. keys may be nil; labels are resolved through t when given.
func TranslateError(t *schema.Table, keys KeyResolver, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.Wrap(apperror.ErrNotFound, msgNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			e := &apperror.Error{Kind: apperror.ErrUniquenessConflict, Message: msgDuplicate, Err: err}
			var key schema.BusinessKey
			var ok bool
			if t != nil {
				key, ok = t.BusinessKeyFor(pgErr.ConstraintName)
			}
			if !ok && keys != nil {
				key, ok = keys.BusinessKeyFor(pgErr.ConstraintName)
			}
			if ok {
				e.Message = key.Message
				e.Fields = []string{labelOf(t, key.Column)}
			}
			return e
		case pgNotNullViolation:
			e := &apperror.Error{Kind: apperror.ErrMandatoryFieldViolation, Message: msgRequired, Err: err}
			if pgErr.ColumnName != "" {
				e.Fields = []string{labelOf(t, pgErr.ColumnName)}
			}
			return e
		}
		return apperror.Wrap(apperror.ErrStorage, pgErr.Message, err)
	}

	if isConnectionError(err) {
		return apperror.Wrap(apperror.ErrConnectionUnavailable, msgNoConn, err)
	}
	return apperror.Wrap(apperror.ErrStorage, err.Error(), err)
}

func isConnectionError(err error) bool {
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded)
}

func labelOf(t *schema.Table, column string) string {
	if t == nil {
		return column
	}
	return t.LabelOf(column)
}
