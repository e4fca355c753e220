package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pomi/internal/apperror"
	"pomi/internal/schema"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTranslateUniqueViolationUsesBusinessKey(t *testing.T) {
	tbl := schema.SitesStockage()
	pgErr := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: schema.UQSiteCode}

	err := TranslateError(tbl, nil, fmt.Errorf("insert: %w", pgErr))
	require.True(t, errors.Is(err, apperror.ErrUniquenessConflict))
	require.Equal(t, "Ce site de stockage (site + emplacement) existe déjà", err.Error())
	require.Equal(t, []string{"Code unique"}, apperror.Fields(err))
}

func TestTranslateUniqueViolationFallsBackToResolver(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: schema.UQLotCode}

	err := TranslateError(nil, schema.Default(), pgErr)
	require.True(t, errors.Is(err, apperror.ErrUniquenessConflict))
	require.Equal(t, "Ce code lot existe déjà", err.Error())

	err = TranslateError(nil, nil, &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "uq_other"})
	require.True(t, errors.Is(err, apperror.ErrUniquenessConflict))
	require.Equal(t, msgDuplicate, err.Error())
}

func TestTranslateNotNullViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgNotNullViolation, ColumnName: schema.ColCodeVariete}

	err := TranslateError(schema.Plants(), nil, pgErr)
	require.True(t, errors.Is(err, apperror.ErrMandatoryFieldViolation))
	require.Equal(t, []string{"Code variété"}, apperror.Fields(err))
}

func TestTranslateOtherErrors(t *testing.T) {
	require.NoError(t, TranslateError(nil, nil, nil))

	err := TranslateError(nil, nil, gorm.ErrRecordNotFound)
	require.True(t, errors.Is(err, apperror.ErrNotFound))

	err = TranslateError(nil, nil, context.DeadlineExceeded)
	require.True(t, errors.Is(err, apperror.ErrConnectionUnavailable))

	err = TranslateError(nil, nil, errors.New("boom"))
	require.True(t, errors.Is(err, apperror.ErrStorage))

	already := apperror.New(apperror.ErrValidationFailed, "déjà classée")
	require.Same(t, already, TranslateError(nil, nil, already))
}
