// Package export renders the monthly resume as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"gofinances/internal/aggregator"
	"gofinances/internal/core"
	"gofinances/internal/format"
)

const (
	SummarySheet      = "Resumo"
	TransactionsSheet = "Transações"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Report is the data of one month's workbook.
type Report struct {
	Year         int
	Month        int
	Total        core.Money
	Categories   []aggregator.CategorySummary
	Transactions []core.Transaction
	Catalog      core.Catalog
	Location     *time.Location
}

// Filename returns the suggested download name, e.g. "resumo-2024-03.xlsx".
func (r Report) Filename() string {
	return fmt.Sprintf("resumo-%04d-%02d.xlsx", r.Year, r.Month)
}

type styles struct {
	title, header, money, income, expense int
}

// WriteXLSX writes the workbook to w.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(TransactionsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := writeSummary(f, st, r); err != nil {
		return err
	}
	if err := writeTransactions(f, st, r); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.title, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 14, Color: "#FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#5636D3"}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		}},
		{&st.header, &excelize.Style{
			Font:   &excelize.Font{Bold: true, Size: 11},
			Fill:   excelize.Fill{Type: "pattern", Color: []string{"#F0F2F5"}, Pattern: 1},
			Border: []excelize.Border{{Type: "bottom", Color: "#969CB2", Style: 2}},
		}},
		{&st.money, &excelize.Style{
			NumFmt:    4,
			Alignment: &excelize.Alignment{Horizontal: "right"},
		}},
		{&st.income, &excelize.Style{Font: &excelize.Font{Color: "#12A454"}, NumFmt: 4}},
		{&st.expense, &excelize.Style{Font: &excelize.Font{Color: "#E83F5B"}, NumFmt: 4}},
	}
	for _, d := range defs {
		if *d.dst, err = f.NewStyle(d.style); err != nil {
			return st, fmt.Errorf("create style: %w", err)
		}
	}
	return st, nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeSummary(f *excelize.File, st styles, r Report) error {
	sheet := SummarySheet
	if err := f.MergeCell(sheet, "A1", "C1"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "A1", "Resumo por categoria, "+format.MonthYear(r.Year, r.Month)); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", st.title); err != nil {
		return err
	}
	if err := setRow(f, sheet, 3, "Categoria", "Total", "Percentual"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A3", "C3", st.header); err != nil {
		return err
	}

	row := 4
	for _, c := range r.Categories {
		if err := setRow(f, sheet, row, c.Name, c.Total.Reais(), c.PercentFormatted); err != nil {
			return fmt.Errorf("write category %s: %w", c.Key, err)
		}
		row++
	}
	if len(r.Categories) == 0 {
		if err := setRow(f, sheet, row, format.NoTransactions); err != nil {
			return err
		}
		row++
	}

	if err := setRow(f, sheet, row+1, "Total", r.Total.Reais()); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "B4", fmt.Sprintf("B%d", row+1), st.money); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "C", 22)
}

func writeTransactions(f *excelize.File, st styles, r Report) error {
	sheet := TransactionsSheet
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	if err := setRow(f, sheet, 1, "Data", "Nome", "Categoria", "Tipo", "Valor"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "E1", st.header); err != nil {
		return err
	}

	for i, tx := range r.Transactions {
		row := i + 2
		category := tx.Category
		if c, ok := r.Catalog.Lookup(tx.Category); ok {
			category = c.Name
		}
		kind, style := "Entrada", st.income
		if tx.IsExpense() {
			kind, style = "Saída", st.expense
		}
		date := tx.Date.In(loc).Format("02/01/2006")
		if err := setRow(f, sheet, row, date, tx.Name, category, kind, tx.Amount.Reais()); err != nil {
			return fmt.Errorf("write transaction %s: %w", tx.ID, err)
		}
		cell := fmt.Sprintf("E%d", row)
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "E", 18)
}
