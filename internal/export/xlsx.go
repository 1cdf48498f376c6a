package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/sheet"
)

const (
	DefaultTitle = "Relatório de Gestão de Contratos"

	ContractsSheet = "Contratos"
	SummarySheet   = "Resumo"

	// Row numbers of the contracts sheet; data rows follow the table header.
	titleRow       = 1
	criteriaRow    = 2
	generatedRow   = 3
	tableHeaderRow = 4

	headerFill  = "3B82F6"
	stripeFill  = "F1F5F9"
	columnWidth = 24
)

// Report is the content of a formatted contracts report.
type Report struct {
	Title       string
	Schema      contracts.Schema
	Criteria    contracts.Criteria
	Projection  contracts.Projection
	Records     []sheet.Record // the filtered records listed in the table
	Metrics     contracts.Metrics
	GeneratedAt time.Time
}

// WriteXLSX writes r to w as an Excel workbook with two sheets.
//
// The "Contratos" sheet starts with the report title, a description of the active filters and
// the generation time, followed by a striped table of the projected columns. Expiry cells are
// annotated with the remaining days, as in "01/01/2025 (15 dias restantes)".
//
// The "Resumo" sheet lists the metrics of r, the record count of every status group and
// the organizational units with the most records.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ContractsSheet); err != nil {
		return err
	}
	if err := writeContractsSheet(f, r); err != nil {
		return fmt.Errorf("error writing %s sheet: %w", ContractsSheet, err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	if err := writeSummarySheet(f, r.Metrics); err != nil {
		return fmt.Errorf("error writing %s sheet: %w", SummarySheet, err)
	}
	return f.Write(w)
}

func writeContractsSheet(f *excelize.File, r Report) error {
	title := r.Title
	if title == "" {
		title = DefaultTitle
	}
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	stripeStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{stripeFill}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := setRow(f, ContractsSheet, titleRow, title); err != nil {
		return err
	}
	if err := f.SetCellStyle(ContractsSheet, "A1", "A1", titleStyle); err != nil {
		return err
	}
	if err := setRow(f, ContractsSheet, criteriaRow, r.Criteria.String()); err != nil {
		return err
	}
	if !r.GeneratedAt.IsZero() {
		generated := "Gerado em " + r.GeneratedAt.Format("02/01/2006 15:04")
		if err := setRow(f, ContractsSheet, generatedRow, generated); err != nil {
			return err
		}
	}

	if len(r.Projection) == 0 {
		return nil
	}
	lastCol, err := excelize.ColumnNumberToName(len(r.Projection))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(ContractsSheet, "A", lastCol, columnWidth); err != nil {
		return err
	}

	labels := make([]interface{}, len(r.Projection))
	for i, l := range r.Projection.Labels() {
		labels[i] = l
	}
	if err := setRow(f, ContractsSheet, tableHeaderRow, labels...); err != nil {
		return err
	}
	if err := styleRow(f, tableHeaderRow, lastCol, headerStyle); err != nil {
		return err
	}

	for i, rec := range r.Records {
		row := tableHeaderRow + 1 + i
		if err := setRow(f, ContractsSheet, row, reportCells(r, rec)...); err != nil {
			return err
		}
		if i%2 == 1 {
			if err := styleRow(f, row, lastCol, stripeStyle); err != nil {
				return err
			}
		}
	}
	return nil
}

// reportCells returns the projected cells of rec, annotating the expiry column.
func reportCells(r Report, rec sheet.Record) []interface{} {
	cells := make([]interface{}, len(r.Projection))
	for i, c := range r.Projection {
		v := rec.Get(c.Key)
		if c.Label == contracts.LabelExpiry {
			v = fmt.Sprintf("%s (%s dias restantes)", v, r.Schema.DaysRemaining(rec))
		}
		cells[i] = v
	}
	return cells
}

func writeSummarySheet(f *excelize.File, m contracts.Metrics) error {
	rows := [][]interface{}{
		{SummarySheet},
		{"Total de contratos", m.Total},
		{"Vigentes", m.Active},
		{"Vencidos", m.Expired},
		{"A vencer (" + strconv.Itoa(contracts.ExpiringSoonDays) + " dias)", m.ExpiringSoon},
		{},
		{contracts.LabelStatus, "QUANTIDADE"},
	}
	for _, g := range m.ByStatus {
		rows = append(rows, []interface{}{g.Label, g.Count})
	}
	rows = append(rows, []interface{}{}, []interface{}{contracts.LabelUnit, "QUANTIDADE"})
	for _, g := range m.TopUnits(contracts.TopUnitsInReports) {
		rows = append(rows, []interface{}{g.Label, g.Count})
	}

	for i, cells := range rows {
		if len(cells) == 0 {
			continue
		}
		if err := setRow(f, SummarySheet, i+1, cells...); err != nil {
			return err
		}
	}
	return f.SetColWidth(SummarySheet, "A", "B", columnWidth)
}

func setRow(f *excelize.File, sheetName string, row int, cells ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheetName, cell, &cells)
}

func styleRow(f *excelize.File, row int, lastCol string, style int) error {
	return f.SetCellStyle(ContractsSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), style)
}
