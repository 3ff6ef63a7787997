// services/verifier-svc/internal/report/xlsx.go
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"stochastic/services/verifier-svc/internal/service"
)

// summarySheet имя листа со сводкой по всем экспериментам
const summarySheet = "Summary"

// WriteXLSX сохраняет книгу в файл
func WriteXLSX(path string, results []*service.Result) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := WriteXLSXTo(out, results); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// WriteXLSXTo пишет книгу: лист сводки и по листу распределения на эксперимент
func WriteXLSXTo(w io.Writer, results []*service.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	percentStyle, err := f.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if err := writeSummary(f, results, headerStyle); err != nil {
		return err
	}

	for _, res := range results {
		if err := writeDistribution(f, res, headerStyle, percentStyle); err != nil {
			return fmt.Errorf("sheet %s: %w", res.Experiment, err)
		}
	}

	return f.Write(w)
}

func writeSummary(f *excelize.File, results []*service.Result, headerStyle int) error {
	headers := []any{"Experiment", "Claim", "Value", "Empirical", "Deviation", "Exact", "Tolerance", "Agrees", "Seed", "Trials", "Informational"}
	if err := f.SetSheetRow(summarySheet, "A1", &headers); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", cellAddr("K", 1), headerStyle); err != nil {
		return err
	}

	row := 2
	for _, res := range results {
		for _, c := range res.Claims {
			var exact any = ""
			if c.HasExact {
				exact = c.Exact
			}
			values := []any{
				res.Experiment,
				c.Claim.Name,
				c.Claim.Value,
				c.Empirical,
				c.Deviation,
				exact,
				c.Claim.Tolerance,
				c.Agrees,
				fmt.Sprint(res.Seed),
				res.Trials,
				c.Claim.Informational,
			}
			if err := f.SetSheetRow(summarySheet, cellAddr("A", row), &values); err != nil {
				return err
			}
			row++
		}
	}

	return f.SetColWidth(summarySheet, "A", "K", 14)
}

func writeDistribution(f *excelize.File, res *service.Result, headerStyle, percentStyle int) error {
	sheet := res.Experiment
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []any{"Outcome", "Count", "Share", "Exact"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "D1", headerStyle); err != nil {
		return err
	}

	for i, r := range res.Rows {
		row := i + 2
		values := []any{r.Label, r.Count, r.Probability}
		if r.HasExact {
			values = append(values, r.Exact)
		}
		if err := f.SetSheetRow(sheet, cellAddr("A", row), &values); err != nil {
			return err
		}
	}
	if n := len(res.Rows); n > 0 {
		if err := f.SetCellStyle(sheet, "C2", cellAddr("D", n+1), percentStyle); err != nil {
			return err
		}
	}

	// под таблицей - сводка по величинам
	row := len(res.Rows) + 3
	measureHeaders := []any{"Measure", "Mean", "Std error", "CI lower", "CI upper"}
	if err := f.SetSheetRow(sheet, cellAddr("A", row), &measureHeaders); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cellAddr("A", row), cellAddr("E", row), headerStyle); err != nil {
		return err
	}
	for _, m := range res.Measures {
		row++
		values := []any{m.Name, m.Mean, m.StdError, m.CILower, m.CIUpper}
		if err := f.SetSheetRow(sheet, cellAddr("A", row), &values); err != nil {
			return err
		}
	}

	return f.SetColWidth(sheet, "A", "E", 14)
}

func cellAddr(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
