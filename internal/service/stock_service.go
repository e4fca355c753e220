package service

import (
	"context"
	"strings"

	"pomi/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type StockLine struct {
	CodeVariete string          `json:"code_variete"`
	LotCount    int64           `json:"lot_count"`
	Units       int64           `json:"units"`
	GrossKg     decimal.Decimal `json:"gross_kg"`
	WashedNetKg decimal.Decimal `json:"washed_net_kg"`
	OldestEntry string          `json:"oldest_entry,omitempty"`
}

type StockSummary struct {
	Site        string          `json:"site,omitempty"`
	Lines       []StockLine     `json:"lines"`
	TotalLots   int64           `json:"total_lots"`
	TotalUnits  int64           `json:"total_units"`
	TotalGross  decimal.Decimal `json:"total_gross_kg"`
	TotalWashed decimal.Decimal `json:"total_washed_net_kg"`
}

type StockService interface {
	Summary(ctx context.Context, site string) (*StockSummary, error)
}

type stockService struct {
	repo repository.StockRepository
	log  *zap.Logger
}

func NewStockService(repo repository.StockRepository, log *zap.Logger) StockService {
	return &stockService{repo: repo, log: log}
}

// Summary totals the active raw lots per variety.
func (s *stockService) Summary(ctx context.Context, site string) (*StockSummary, error) {
	site = strings.TrimSpace(site)
	rows, err := s.repo.SummaryByVariety(ctx, site)
	if err != nil {
		return nil, err
	}

	summary := &StockSummary{Site: site, Lines: make([]StockLine, 0, len(rows))}
	for _, r := range rows {
		line := StockLine{
			CodeVariete: r.CodeVariete,
			LotCount:    r.LotCount,
			Units:       r.Units,
			GrossKg:     s.parse(r.GrossKg),
			WashedNetKg: s.parse(r.WashedNetKg),
		}
		if r.OldestEntry != nil {
			line.OldestEntry = r.OldestEntry.Format("2006-01-02")
		}
		summary.Lines = append(summary.Lines, line)
		summary.TotalLots += line.LotCount
		summary.TotalUnits += line.Units
		summary.TotalGross = summary.TotalGross.Add(line.GrossKg)
		summary.TotalWashed = summary.TotalWashed.Add(line.WashedNetKg)
	}
	return summary, nil
}

func (s *stockService) parse(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		s.log.Warn("unreadable stock weight", zap.String("value", v), zap.Error(err))
		return decimal.Zero
	}
	return d
}
