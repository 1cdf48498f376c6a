// Package export renders filtered contract records into downloadable documents.
// Every document is built from a contracts.Projection, so that all formats show the same
// columns in the same order.
package export

import (
	"encoding/csv"
	"io"

	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/sheet"
)

const (
	CSVFileName  = "relatorio_contratos_filtrados.csv"
	XLSXFileName = "relatorio_contratos_filtrados.xlsx"

	CSVContentType  = "text/csv; charset=utf-8"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteCSV writes a header line of display labels followed by one line per record.
// Cell values are written exactly as they appear in the sheet.
func WriteCSV(w io.Writer, p contracts.Projection, records []sheet.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(p.Labels()); err != nil {
		return err
	}
	if err := cw.WriteAll(p.Rows(records)); err != nil {
		return err
	}
	return cw.Error()
}
