package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecnipro/cobranzas/internal/domain/billing"
)

const testCutoverYear = 2024

const sampleHeader = "Tipo Doc;Tipo Venta;Rut cliente;Razon Social;Folio;Fecha Docto;Fecha Recepcion;Fecha Acuse Recibo;Monto Exento;Monto Neto;Monto IVA;Monto total;Tipo Docto. Referencia;Folio Docto. Referencia"

func newTestParser() *Parser {
	return NewParser(testCutoverYear, zap.NewNop())
}

func TestPeriodFromFilename(t *testing.T) {
	t.Run("Underscore separator", func(t *testing.T) {
		period, err := PeriodFromFilename("RegistroVentas 03_2024.csv")
		require.NoError(t, err)
		assert.Equal(t, "2024-03", period)
	})

	t.Run("Space separator", func(t *testing.T) {
		period, err := PeriodFromFilename("ventas 12 2023.csv")
		require.NoError(t, err)
		assert.Equal(t, "2023-12", period)
	})

	t.Run("No separator and uppercase extension", func(t *testing.T) {
		period, err := PeriodFromFilename("VENTAS_072025.CSV")
		require.NoError(t, err)
		assert.Equal(t, "2025-07", period)
	})

	t.Run("Month out of range", func(t *testing.T) {
		_, err := PeriodFromFilename("ventas 13_2024.csv")
		assert.ErrorIs(t, err, ErrBadFilename)
	})

	t.Run("No period in name", func(t *testing.T) {
		_, err := PeriodFromFilename("resumen_anual.csv")
		assert.ErrorIs(t, err, ErrBadFilename)
	})
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		value string
		want  time.Time
	}{
		{"01/02/2022 18:40:03", time.Date(2022, 2, 1, 18, 40, 3, 0, time.UTC)},
		{"01/02/2022 18:40", time.Date(2022, 2, 1, 18, 40, 0, 0, time.UTC)},
		{"03-01-2023 16:41:05", time.Date(2023, 1, 3, 16, 41, 5, 0, time.UTC)},
		{"03-01-2023 16:41", time.Date(2023, 1, 3, 16, 41, 0, 0, time.UTC)},
		{"01/02/2022", time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"03-01-2023", time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, ok := parseDate(c.value)
		require.True(t, ok, "value %q", c.value)
		assert.True(t, c.want.Equal(got), "value %q", c.value)
	}

	_, ok := parseDate("2022-02-01")
	assert.False(t, ok, "ISO dates are not an SII layout")
	_, ok = parseDate("")
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	t.Run("Invoice and credit note rows", func(t *testing.T) {
		content := sampleHeader + "\n" +
			"33;Del Giro;76543210-1;OTIC Capacita;1001;05/03/2024;06/03/2024 10:15:00;;0;1000000;190000;1190000;;\n" +
			"61;Del Giro;76543210-1;OTIC Capacita;501;20/03/2024;;;0;100000;19000;119000;33;1001\n"

		result, err := newTestParser().Parse("ventas 03_2024.csv", strings.NewReader(content))
		require.NoError(t, err)
		assert.Empty(t, result.Errors)
		assert.Equal(t, "2024-03", result.Period)
		assert.Equal(t, 2, result.TotalRows)
		require.Len(t, result.Documents, 2)

		inv := result.Documents[0]
		assert.Equal(t, billing.DocTypeFacturaElectronica, inv.DocType)
		assert.Equal(t, int64(1001), inv.Folio)
		assert.Equal(t, "76543210-1", inv.PayerTaxID)
		assert.Equal(t, "OTIC Capacita", inv.PayerName)
		assert.Equal(t, int64(1190000), inv.Amounts.Total)
		assert.Equal(t, int64(1190000), inv.OutstandingBalance)
		assert.Equal(t, billing.StatePending, inv.State)
		require.NotNil(t, inv.ReceptionDate)
		assert.Nil(t, inv.AcknowledgeDate)

		nc := result.Documents[1]
		assert.Equal(t, billing.DocTypeNotaCredito, nc.DocType)
		assert.Equal(t, int64(0), nc.OutstandingBalance)
		require.NotNil(t, nc.RefFolio)
		assert.Equal(t, int64(1001), *nc.RefFolio)
		require.NotNil(t, nc.RefDocType)
		assert.Equal(t, billing.DocTypeFacturaElectronica, *nc.RefDocType)

		assert.Equal(t, 1, result.InvoiceCount())
		assert.Equal(t, 1, result.CreditNoteCount())
		assert.Equal(t, int64(1190000), result.TotalInvoiceAmount())
	})

	t.Run("Pre-cutover documents import settled", func(t *testing.T) {
		content := sampleHeader + "\n" +
			"33;;76543210-1;OTIC Capacita;900;15/06/2022;;;0;500000;95000;595000;;\n"

		result, err := newTestParser().Parse("ventas 06_2022.csv", strings.NewReader(content))
		require.NoError(t, err)
		require.Len(t, result.Documents, 1)
		assert.Equal(t, billing.StateSettled, result.Documents[0].State)
		assert.Equal(t, int64(0), result.Documents[0].OutstandingBalance)
	})

	t.Run("Irrelevant document types are skipped", func(t *testing.T) {
		content := sampleHeader + "\n" +
			"39;;11111111-1;Boleta Cliente;77;05/03/2024;;;0;10000;1900;11900;;\n" +
			"33;;76543210-1;OTIC;1002;05/03/2024;;;0;1;0;1;;\n"

		result, err := newTestParser().Parse("ventas 03_2024.csv", strings.NewReader(content))
		require.NoError(t, err)
		assert.Equal(t, 1, result.SkippedRows)
		assert.Len(t, result.Documents, 1)
		assert.Empty(t, result.Errors)
	})

	t.Run("Bad folio and bad issue date become row errors", func(t *testing.T) {
		content := sampleHeader + "\n" +
			"33;;76543210-1;OTIC;;05/03/2024;;;0;1;0;1;;\n" +
			"33;;76543210-1;OTIC;1003;fecha rara;;;0;1;0;1;;\n" +
			"33;;76543210-1;OTIC;1004;05/03/2024;;;0;1;0;1;;\n"

		result, err := newTestParser().Parse("ventas 03_2024.csv", strings.NewReader(content))
		require.NoError(t, err)
		require.Len(t, result.Errors, 2)
		assert.Equal(t, ErrCodeInvalidFolio, result.Errors[0].Code)
		assert.Equal(t, ErrCodeInvalidDate, result.Errors[1].Code)
		assert.Len(t, result.Documents, 1)
	})

	t.Run("Non-numeric document type is a row error", func(t *testing.T) {
		content := sampleHeader + "\n" +
			"factura;;76543210-1;OTIC;1005;05/03/2024;;;0;1;0;1;;\n"

		result, err := newTestParser().Parse("ventas 03_2024.csv", strings.NewReader(content))
		require.NoError(t, err)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, ErrCodeInvalidDocType, result.Errors[0].Code)
	})

	t.Run("Zero-total invoice imports with a warning", func(t *testing.T) {
		content := sampleHeader + "\n" +
			"34;;76543210-1;OTIC;1006;05/03/2024;;;0;0;0;0;;\n"

		result, err := newTestParser().Parse("ventas 03_2024.csv", strings.NewReader(content))
		require.NoError(t, err)
		assert.Empty(t, result.Errors)
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, ErrCodeZeroTotal, result.Warnings[0].Code)
		require.Len(t, result.Documents, 1)
		assert.Equal(t, int64(0), result.Documents[0].Amounts.Total)
	})

	t.Run("Blank amount fields count as zero", func(t *testing.T) {
		content := sampleHeader + "\n" +
			"33;;76543210-1;OTIC;1007;05/03/2024;;;;;;595000;;\n"

		result, err := newTestParser().Parse("ventas 03_2024.csv", strings.NewReader(content))
		require.NoError(t, err)
		require.Len(t, result.Documents, 1)
		doc := result.Documents[0]
		assert.Equal(t, int64(0), doc.Amounts.Net)
		assert.Equal(t, int64(0), doc.Amounts.VAT)
		assert.Equal(t, int64(595000), doc.Amounts.Total)
	})

	t.Run("Missing required columns", func(t *testing.T) {
		content := "Tipo Doc;Folio;Monto total\n33;1;100\n"

		result, err := newTestParser().Parse("ventas 03_2024.csv", strings.NewReader(content))
		require.NoError(t, err)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, ErrCodeMissingColumns, result.Errors[0].Code)
		assert.Contains(t, result.Errors[0].Column, "Fecha Docto")
		assert.Empty(t, result.Documents)
	})

	t.Run("Filename without period is rejected", func(t *testing.T) {
		_, err := newTestParser().Parse("resumen.csv", strings.NewReader(sampleHeader))
		assert.ErrorIs(t, err, ErrBadFilename)
	})

	t.Run("Empty file", func(t *testing.T) {
		_, err := newTestParser().Parse("ventas 03_2024.csv", strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		content := "\xEF\xBB\xBF" + sampleHeader + "\n" +
			"33;;76543210-1;OTIC;1008;05/03/2024;;;0;1;0;1;;\n"

		result, err := newTestParser().Parse("ventas 03_2024.csv", strings.NewReader(content))
		require.NoError(t, err)
		assert.Empty(t, result.Errors)
		assert.Len(t, result.Documents, 1)
	})

	t.Run("Latin-1 fallback decodes payer names", func(t *testing.T) {
		// "Compañía" with the ñ and í encoded as ISO-8859-1 single bytes
		content := sampleHeader + "\n" +
			"33;;76543210-1;Compa\xF1\xEDa Andina;1009;05/03/2024;;;0;1;0;1;;\n"

		result, err := newTestParser().Parse("ventas 03_2024.csv", strings.NewReader(content))
		require.NoError(t, err)
		require.Len(t, result.Documents, 1)
		assert.Equal(t, "Compañía Andina", result.Documents[0].PayerName)
	})
}
