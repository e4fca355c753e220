package schema

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var thousand = decimal.NewFromInt(1000)

func textValue(row map[string]any, col string) (string, bool) {
	s, ok := row[col].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func decimalValue(row map[string]any, col string) (decimal.Decimal, bool) {
	switch v := row[col].(type) {
	case decimal.Decimal:
		return v, true
	case int64:
		return decimal.NewFromInt(v), true
	}
	return decimal.Decimal{}, false
}

func timeValue(row map[string]any, col string) (time.Time, bool) {
	t, ok := row[col].(time.Time)
	return t, ok && !t.IsZero()
}

// DeriveDepartement is the first two characters of the postal code. It is
// recomputed on every load and overrides whatever is stored.
func DeriveDepartement(row map[string]any, _ time.Time) any {
	cp, ok := textValue(row, ColCodePostal)
	if !ok {
		return nil
	}
	r := []rune(cp)
	if len(r) < 2 {
		return nil
	}
	return string(r[:2])
}

func derivePrixAffiche(row map[string]any, _ time.Time) any {
	price, ok := decimalValue(row, ColPrixUnitaire)
	if !ok {
		return nil
	}
	unit, ok := textValue(row, ColUnitePrix)
	if !ok {
		return price.StringFixed(2) + " €"
	}
	return price.StringFixed(2) + " €/" + unit
}

func deriveAgeJours(row map[string]any, now time.Time) any {
	entry, ok := timeValue(row, ColDateEntree)
	if !ok {
		return nil
	}
	from := time.Date(entry.Year(), entry.Month(), entry.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int64(to.Sub(from).Hours() / 24)
}

func deriveValeurLot(row map[string]any, _ time.Time) any {
	weight, ok := decimalValue(row, ColPoidsBrutKg)
	if !ok {
		return nil
	}
	price, ok := decimalValue(row, ColPrixAchatTonne)
	if !ok {
		return nil
	}
	return weight.Div(thousand).Mul(price).Round(2)
}

func derivePerteLavage(row map[string]any, _ time.Time) any {
	gross, ok := decimalValue(row, ColPoidsBrutKg)
	if !ok || gross.IsZero() {
		return nil
	}
	net, ok := decimalValue(row, ColPoidsNetLaveKg)
	if !ok {
		return nil
	}
	return gross.Sub(net).Div(gross).Mul(decimal.NewFromInt(100)).Round(1)
}
