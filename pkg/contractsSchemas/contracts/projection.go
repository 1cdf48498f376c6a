package contracts

import (
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/sheet"
)

// Display labels of the projected columns.
const (
	LabelContract = "CONTRATO"
	LabelUnit     = "SECRETARIA"
	LabelSubject  = "OBJETO"
	LabelSupplier = "FORNECEDOR"
	LabelExpiry   = "VENCIMENTO"
	LabelStatus   = "SITUAÇÃO"
)

// displayColumns pairs 1-based spreadsheet column positions (D, E, F, G, I, L) with the
// label shown for them.
var displayColumns = []struct {
	position int
	label    string
}{
	{4, LabelContract},
	{5, LabelUnit},
	{6, LabelSubject},
	{7, LabelSupplier},
	{9, LabelExpiry},
	{12, LabelStatus},
}

// Column is a source column selected for display.
type Column struct {
	Key      string `json:"key"`      // header key in the parsed sheet
	Label    string `json:"label"`    // display label
	Position int    `json:"position"` // 1-based column position in the sheet
}

// Projection is the ordered set of columns shown in the record browser and written to
// exports. Both must be produced from the same Projection.
type Projection []Column

// Project selects the display columns from headers. Positions the sheet does not have
// are skipped, so a narrow sheet yields fewer columns.
func Project(headers []sheet.Header) Projection {
	p := make(Projection, 0, len(displayColumns))
	for _, dc := range displayColumns {
		if dc.position-1 < len(headers) {
			p = append(p, Column{
				Key:      headers[dc.position-1].Key,
				Label:    dc.label,
				Position: dc.position,
			})
		}
	}
	return p
}

// Labels returns the display labels in column order.
func (p Projection) Labels() []string {
	labels := make([]string, len(p))
	for i, c := range p {
		labels[i] = c.Label
	}
	return labels
}

// Row returns the projected cell values of r.
func (p Projection) Row(r sheet.Record) []string {
	cells := make([]string, len(p))
	for i, c := range p {
		cells[i] = r.Get(c.Key)
	}
	return cells
}

// Rows returns the projected cell values of every record.
func (p Projection) Rows(records []sheet.Record) [][]string {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = p.Row(r)
	}
	return rows
}
