// Package export writes a table view to CSV or XLSX. Exports are read-only
// projections; nothing is ever imported back.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"pomi/internal/apperror"
	"pomi/internal/editor"
	"pomi/internal/schema"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", apperror.New(apperror.ErrValidationFailed, fmt.Sprintf("format d'export inconnu %q", s))
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName is "<entity>_<yyyymmdd_hhmm>.<ext>".
func FileName(t *schema.Table, f Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", t.Name, now.Format("20060102_1504"), f)
}

// Write serializes rows with the visible columns of t, in registry order.
func Write(w io.Writer, f Format, t *schema.Table, rows []editor.Row) error {
	cols := t.DisplayColumns()
	switch f {
	case FormatXLSX:
		return writeXLSX(w, t.Label, cols, rows)
	default:
		return writeCSV(w, cols, rows)
	}
}

func writeCSV(w io.Writer, cols []schema.Column, rows []editor.Row) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			record[i] = FormatCell(c.Type, row[c.Name])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatCell renders one value as text for CSV output. Null is empty.
func FormatCell(ct schema.ColumnType, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case decimal.Decimal:
		return x.String()
	case bool:
		if x {
			return "Oui"
		}
		return "Non"
	case time.Time:
		if ct == schema.TypeDate {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}

func sheetName(label string) string {
	name := strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", " ", "]", " ").Replace(label)
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	if strings.TrimSpace(name) == "" {
		return "Export"
	}
	return name
}

func writeXLSX(w io.Writer, label string, cols []schema.Column, rows []editor.Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sheetName(label)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return err
	}

	for r, row := range rows {
		values := make([]any, len(cols))
		for i, c := range cols {
			values[i] = xlsxValue(row[c.Name])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		for i, c := range cols {
			if c.Type != schema.TypeDate || row[c.Name] == nil {
				continue
			}
			dc, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, dc, dc, dateStyle); err != nil {
				return err
			}
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func xlsxValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	default:
		return x
	}
}
