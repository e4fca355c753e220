package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// StockRow is one variety line of the stock summary. Weights come back as
// text to keep numeric precision.
type StockRow struct {
	CodeVariete string
	LotCount    int64
	Units       int64
	GrossKg     string
	WashedNetKg string
	OldestEntry *time.Time
}

type StockRepository interface {
	SummaryByVariety(ctx context.Context, site string) ([]StockRow, error)
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

// SummaryByVariety aggregates active lots, optionally for one storage site.
func (r *stockRepository) SummaryByVariety(ctx context.Context, site string) ([]StockRow, error) {
	var rows []StockRow
	q := GetDB(ctx, r.db).Table("lots_bruts").
		Select("code_variete, " +
			"COUNT(*) AS lot_count, " +
			"COALESCE(SUM(nombre_unites), 0) AS units, " +
			"COALESCE(CAST(SUM(poids_total_brut_kg) AS TEXT), '0') AS gross_kg, " +
			"COALESCE(CAST(SUM(poids_net_lave_kg) AS TEXT), '0') AS washed_net_kg, " +
			"MIN(date_entree_stock) AS oldest_entry").
		Where("is_active = ?", true)
	if site != "" {
		q = q.Where("site_stockage = ?", site)
	}
	if err := q.Group("code_variete").Order("code_variete").Scan(&rows).Error; err != nil {
		return nil, TranslateError(nil, nil, err)
	}
	return rows, nil
}
