// services/verifier-svc/internal/report/pdf.go
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"golang.org/x/text/message"

	"stochastic/services/verifier-svc/internal/service"
)

// maxPDFRows строк распределения на эксперимент; остальные есть в XLSX
const maxPDFRows = 30

// Стили
var (
	pdfPrimaryColor   = &props.Color{Red: 52, Green: 152, Blue: 219}  // #3498db
	pdfHeaderBgColor  = &props.Color{Red: 44, Green: 62, Blue: 80}    // #2c3e50
	pdfSuccessColor   = &props.Color{Red: 39, Green: 174, Blue: 96}   // #27ae60
	pdfDangerColor    = &props.Color{Red: 231, Green: 76, Blue: 60}   // #e74c3c
	pdfLightGrayColor = &props.Color{Red: 236, Green: 240, Blue: 241} // #ecf0f1
	pdfDarkGrayColor  = &props.Color{Red: 127, Green: 140, Blue: 141} // #7f8c8d

	pdfTitleStyle = props.Text{
		Size:  20,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: pdfHeaderBgColor,
	}

	pdfSectionStyle = props.Text{
		Size:  14,
		Style: fontstyle.Bold,
		Color: pdfHeaderBgColor,
		Top:   5,
	}

	pdfSmallStyle = props.Text{
		Size:  8,
		Color: pdfDarkGrayColor,
	}

	pdfCardValueStyle = props.Text{
		Size:  14,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: pdfPrimaryColor,
	}

	pdfCardLabelStyle = props.Text{
		Size:  8,
		Align: align.Center,
		Color: pdfDarkGrayColor,
		Top:   7,
	}

	pdfHeaderCell = &props.Cell{
		BackgroundColor: pdfPrimaryColor,
	}

	pdfHeaderText = props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
		Align: align.Center,
	}

	pdfCell = &props.Cell{
		BorderType:  border.Bottom,
		BorderColor: pdfLightGrayColor,
	}

	pdfCellText = props.Text{
		Size:  9,
		Align: align.Center,
	}
)

// WritePDF сохраняет PDF-отчёт в файл
func WritePDF(path string, results []*service.Result, opts Options) error {
	data, err := PDF(results, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// PDF строит документ: по разделу на эксперимент с карточками итогов,
// таблицей утверждений и распределением исходов.
// Формулы в PDF не выводятся: стандартные шрифты не содержат математических символов.
func PDF(results []*service.Result, opts Options) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)
	p := message.NewPrinter(opts.Locale)

	m.AddRow(12, text.NewCol(12, "Verification report", pdfTitleStyle))
	m.AddRow(4, line.NewCol(12))
	m.AddRow(6,
		text.NewCol(12, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05")),
			props.Text{Size: 8, Color: pdfDarkGrayColor, Align: align.Right}),
	)

	for _, res := range results {
		addPDFResult(m, p, res, opts)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addPDFResult(m core.Maroto, p *message.Printer, res *service.Result, opts Options) {
	verdict, color := "OK", pdfSuccessColor
	if !res.Agrees {
		verdict, color = "MISMATCH", pdfDangerColor
	}

	m.AddRow(10,
		text.NewCol(8, res.Experiment, pdfSectionStyle),
		text.NewCol(4, verdict, props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Right, Color: color, Top: 5}),
	)
	m.AddRow(2, line.NewCol(12, props.Line{Color: pdfPrimaryColor}))
	m.AddRow(6, text.NewCol(12, formatParams(p, res.Params), pdfSmallStyle))

	exact := "skipped"
	if res.Exact != nil {
		exact = p.Sprintf("%.6f", res.Exact.Mean)
	}
	cards := []pdfCard{
		{Label: "Seed", Value: fmt.Sprint(res.Seed)},
		{Label: "Trials", Value: p.Sprintf("%d", res.Trials)},
		{Label: "Exact mean", Value: exact},
	}
	if primary := res.Primary(); primary.Name != "" {
		cards = append(cards, pdfCard{Label: "Mean " + primary.Name, Value: p.Sprintf("%.6f", primary.Mean)})
	}
	addPDFCards(m, cards)
	if res.Exact == nil && res.ExactSkip != "" {
		m.AddRow(5, text.NewCol(12, "exact: "+res.ExactSkip, pdfSmallStyle))
	}

	m.AddRow(4)
	m.AddRow(8,
		text.NewCol(3, "Claim", pdfHeaderText).WithStyle(pdfHeaderCell),
		text.NewCol(2, "Value", pdfHeaderText).WithStyle(pdfHeaderCell),
		text.NewCol(2, "Empirical", pdfHeaderText).WithStyle(pdfHeaderCell),
		text.NewCol(2, "Deviation", pdfHeaderText).WithStyle(pdfHeaderCell),
		text.NewCol(1, "Tol.", pdfHeaderText).WithStyle(pdfHeaderCell),
		text.NewCol(2, "Verdict", pdfHeaderText).WithStyle(pdfHeaderCell),
	)
	for _, c := range res.Claims {
		m.AddRow(6,
			text.NewCol(3, c.Claim.Name, pdfCellText).WithStyle(pdfCell),
			text.NewCol(2, p.Sprintf("%.4f", c.Claim.Value), pdfCellText).WithStyle(pdfCell),
			text.NewCol(2, p.Sprintf("%.4f", c.Empirical), pdfCellText).WithStyle(pdfCell),
			text.NewCol(2, p.Sprintf("%.4f", c.Deviation), pdfCellText).WithStyle(pdfCell),
			text.NewCol(1, p.Sprintf("%.2f", c.Claim.Tolerance), pdfCellText).WithStyle(pdfCell),
			text.NewCol(2, claimVerdict(c), pdfCellText).WithStyle(pdfCell),
		)
	}

	m.AddRow(4)
	m.AddRow(8,
		text.NewCol(3, "Outcome", pdfHeaderText).WithStyle(pdfHeaderCell),
		text.NewCol(3, "Count", pdfHeaderText).WithStyle(pdfHeaderCell),
		text.NewCol(3, "Share", pdfHeaderText).WithStyle(pdfHeaderCell),
		text.NewCol(3, "Exact", pdfHeaderText).WithStyle(pdfHeaderCell),
	)
	shown := 0
	for _, row := range res.Rows {
		if !visible(row, opts.MinShare) || shown >= maxPDFRows {
			continue
		}
		shown++
		exactShare := "-"
		if row.HasExact {
			exactShare = Percent(row.Exact, opts.Locale)
		}
		m.AddRow(6,
			text.NewCol(3, row.Label, pdfCellText).WithStyle(pdfCell),
			text.NewCol(3, p.Sprintf("%d", row.Count), pdfCellText).WithStyle(pdfCell),
			text.NewCol(3, Percent(row.Probability, opts.Locale), pdfCellText).WithStyle(pdfCell),
			text.NewCol(3, exactShare, pdfCellText).WithStyle(pdfCell),
		)
	}
	if hidden := len(res.Rows) - shown; hidden > 0 {
		m.AddRow(5, text.NewCol(12, fmt.Sprintf("%d outcomes not shown", hidden), pdfSmallStyle))
	}

	m.AddRow(8)
}

type pdfCard struct {
	Label string
	Value string
}

func addPDFCards(m core.Maroto, cards []pdfCard) {
	if len(cards) == 0 {
		return
	}
	size := max(12/len(cards), 2)

	cols := make([]core.Col, 0, len(cards))
	for _, card := range cards {
		cols = append(cols, col.New(size).Add(
			text.New(card.Value, pdfCardValueStyle),
			text.New(card.Label, pdfCardLabelStyle),
		))
	}
	m.AddRow(16, cols...)
}
