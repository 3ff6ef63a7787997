// services/verifier-svc/internal/report/text.go
package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"stochastic/services/verifier-svc/internal/engine"
	"stochastic/services/verifier-svc/internal/service"
)

// Options параметры текстового отчёта
type Options struct {
	Locale language.Tag
	// MinShare строки распределения с меньшей долей не печатаются
	MinShare     float64
	ShowFormulas bool
}

// Text печатает отчёт по результатам проверки
func Text(w io.Writer, results []*service.Result, opts Options) error {
	r := lipgloss.NewRenderer(w)
	styles := textStyles{
		title: r.NewStyle().Bold(true),
		ok:    r.NewStyle().Foreground(lipgloss.Color("42")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		muted: r.NewStyle().Foreground(lipgloss.Color("241")),
	}
	p := message.NewPrinter(opts.Locale)

	for i, res := range results {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writeResult(w, p, styles, res, opts); err != nil {
			return fmt.Errorf("write %s: %w", res.Experiment, err)
		}
	}
	return nil
}

type textStyles struct {
	title, ok, fail, muted lipgloss.Style
}

func (s textStyles) verdict(ok bool) string {
	if ok {
		return s.ok.Render("OK")
	}
	return s.fail.Render("MISMATCH")
}

func writeResult(w io.Writer, p *message.Printer, st textStyles, res *service.Result, opts Options) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", st.title.Render("== "+res.Experiment+" =="), st.verdict(res.Agrees))
	fmt.Fprintf(&b, "seed %d, trials %s, %s\n", res.Seed, p.Sprintf("%d", res.Trials), formatParams(p, res.Params))

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "\nCLAIM\tVALUE\tEMPIRICAL\tDEVIATION\tEXACT\tTOLERANCE\tVERDICT")
	for _, c := range res.Claims {
		exact := "-"
		if c.HasExact {
			exact = p.Sprintf("%.4f", c.Exact)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Claim.Name,
			p.Sprintf("%.4f", c.Claim.Value),
			p.Sprintf("%.4f", c.Empirical),
			p.Sprintf("%.4f", c.Deviation),
			exact,
			p.Sprintf("%.4f", c.Claim.Tolerance),
			claimVerdict(c),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if opts.ShowFormulas {
		for _, c := range res.Claims {
			if c.Claim.Formula != "" {
				fmt.Fprintf(w, "  %s\n", st.muted.Render(c.Claim.Name+": "+c.Claim.Formula))
			}
		}
	}

	if res.Exact != nil {
		cached := ""
		if res.Exact.Cached {
			cached = ", cached"
		}
		fmt.Fprintf(w, "exact: %s outcomes, mean %s = %s%s\n",
			p.Sprintf("%d", res.Exact.Space), res.Exact.Measure, p.Sprintf("%.6f", res.Exact.Mean), cached)
	} else {
		fmt.Fprintf(w, "exact: skipped (%s)\n", res.ExactSkip)
	}

	fmt.Fprintln(tw, "\nMEASURE\tMEAN\tSTD ERROR\tCI\tMIN\tMAX")
	for _, m := range res.Measures {
		fmt.Fprintf(tw, "%s\t%s\t%s\t[%s; %s]\t%s\t%s\n",
			m.Name,
			p.Sprintf("%.4f", m.Mean),
			p.Sprintf("%.4f", m.StdError),
			p.Sprintf("%.4f", m.CILower),
			p.Sprintf("%.4f", m.CIUpper),
			p.Sprintf("%.4f", m.Min),
			p.Sprintf("%.4f", m.Max),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(tw, "\nOUTCOME\tCOUNT\tSHARE\tEXACT")
	hidden := 0
	for _, row := range res.Rows {
		if !visible(row, opts.MinShare) {
			hidden++
			continue
		}
		exact := "-"
		if row.HasExact {
			exact = Percent(row.Exact, opts.Locale)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			row.Label, p.Sprintf("%d", row.Count), Percent(row.Probability, opts.Locale), exact)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if hidden > 0 {
		fmt.Fprintf(w, "  %s\n", st.muted.Render(fmt.Sprintf("%d outcomes below %s hidden", hidden, Percent(opts.MinShare, opts.Locale))))
	}

	if len(res.Poisson) > 0 {
		fmt.Fprintf(tw, "\nEVENTS IN %s\tPROBABILITY\n", p.Sprintf("%.0f", res.Poisson[0].Window))
		for _, row := range res.Poisson {
			fmt.Fprintf(tw, "%d\t%s\n", row.K, Percent(row.Probability, opts.Locale))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "distribution: %s\n", consistencyLine(p, res.Consistency))
	return err
}

// visible строка показывается, если эмпирическая или точная доля не меньше порога
func visible(row service.Row, minShare float64) bool {
	if minShare <= 0 {
		return true
	}
	return row.Probability >= minShare || (row.HasExact && row.Exact >= minShare)
}

func verdictWord(ok bool) string {
	if ok {
		return "ok"
	}
	return "mismatch"
}

func claimVerdict(c engine.ClaimCheck) string {
	if c.Claim.Informational && !c.Agrees {
		return "mismatch (info)"
	}
	return verdictWord(c.Agrees)
}

func formatParams(p *message.Printer, params map[string]float64) string {
	parts := make([]string, 0, len(params))
	for _, k := range slices.Sorted(maps.Keys(params)) {
		parts = append(parts, k+"="+p.Sprintf("%v", params[k]))
	}
	return strings.Join(parts, " ")
}

func consistencyLine(p *message.Printer, c engine.Consistency) string {
	normalized := "sums to 1"
	if !c.Normalized {
		normalized = "does not sum to 1"
	}
	if !c.Checked {
		return normalized
	}
	return fmt.Sprintf("%s, weighted mean %s vs sample mean %s (%s)",
		normalized,
		p.Sprintf("%.6f", c.WeightedMean),
		p.Sprintf("%.6f", c.SampleMean),
		verdictWord(c.OK),
	)
}
