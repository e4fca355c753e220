package export

import (
	"bytes"
	"testing"
	"time"

	"pomi/internal/editor"
	"pomi/internal/schema"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func producerRows() []editor.Row {
	return []editor.Row{
		{
			"id": int64(1), "code_producteur": "P001", "nom": "Ferme Dupont, SARL",
			"code_postal": "80100", "departement": "80", "is_active": true,
		},
		{"id": int64(2), "code_producteur": "P002", "nom": "Martin", "is_active": true},
	}
}

func TestWriteCSVUsesLabelsAndQuotes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, schema.Producteurs(), producerRows()))

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 3)
	require.Equal(t, "Code producteur,Nom,Adresse,Code postal,Ville,Téléphone,Email,Acheteur référent,Statut,Département", string(lines[0]))
	require.Equal(t, `P001,"Ferme Dupont, SARL",,80100,,,,,,80`, string(lines[1]))
	require.Equal(t, "P002,Martin,,,,,,,,", string(lines[2]))
}

func TestFormatCell(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "", FormatCell(schema.TypeText, nil))
	require.Equal(t, "2026-03-02", FormatCell(schema.TypeDate, day))
	require.Equal(t, "12.5", FormatCell(schema.TypeDecimal, decimal.RequireFromString("12.50")))
	require.Equal(t, "42", FormatCell(schema.TypeInteger, int64(42)))
	require.Equal(t, "Oui", FormatCell(schema.TypeBool, true))
}

func TestWriteXLSX(t *testing.T) {
	rows := []editor.Row{{
		"id": int64(9), "code_lot_interne": "L-2026-001", "date_entree_stock": time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		"poids_total_brut_kg": decimal.RequireFromString("1250.5"), "is_active": true,
	}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, schema.LotsBruts(), rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	require.Equal(t, []string{"Lots bruts"}, f.GetSheetList())
	header, err := f.GetCellValue("Lots bruts", "A1")
	require.NoError(t, err)
	require.Equal(t, "Code lot", header)
	code, err := f.GetCellValue("Lots bruts", "A2")
	require.NoError(t, err)
	require.Equal(t, "L-2026-001", code)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	require.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	require.Error(t, err)
}

func TestSheetNameIsSanitized(t *testing.T) {
	require.Equal(t, "Prix   t", sheetName("Prix / t"))
	require.Len(t, []rune(sheetName("Une étiquette beaucoup trop longue pour Excel")), 31)
}
