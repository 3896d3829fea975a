// Package renderer renders portfolio reports as markdown, HTML and spreadsheets.
package renderer

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
	"time"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.md
var templates embed.FS

// Holdings is the point-in-time view of the portfolio.
type Holdings struct {
	Date        date.Date
	NAV         folio.Money
	Cash        folio.Money
	CashWeight  folio.Ratio
	DailyPnL    folio.Money
	HasDailyPnL bool
	Positions   []folio.PositionRow
	Mismatches  []folio.Mismatch
	Closed      []folio.ClosedPosition
}

// NewHoldings assembles the holdings view of s valued at nav.
func NewHoldings(s *folio.State, rows []folio.PositionRow, nav folio.Money) *Holdings {
	h := &Holdings{
		Date:      s.On(),
		NAV:       nav,
		Cash:      s.Cash(),
		Positions: rows,
		Closed:    s.ClosedPositions(),
	}
	if nav.IsPositive() {
		h.CashWeight = h.Cash.Ratio(nav)
	}
	for _, row := range rows {
		if !row.DailyPnL.IsZero() {
			h.DailyPnL, h.HasDailyPnL = h.DailyPnL.Add(row.DailyPnL), true
		}
	}
	return h
}

// Rebalance gathers both kinds of rebalancing suggestions.
type Rebalance struct {
	Threshold     folio.Ratio
	Suggestions   []folio.RebalanceSuggestion
	ATRPeriod     int
	ATRMultiplier decimal.Decimal
	Bands         []folio.AtrBand
}

// Report is the full daily report. Nil sections are skipped.
type Report struct {
	Date        date.Date
	Holdings    *Holdings
	Summary     *folio.Summary
	Performance *folio.PortfolioPerformance
	Rebalance   *Rebalance
	GeneratedAt time.Time
}

var funcs = template.FuncMap{
	"closedReturn": func(c folio.ClosedPosition) string {
		if r, ok := c.Return(); ok {
			return r.SignedString()
		}
		return "n/a"
	},
}

// partials are available to every template.
var partials = map[string]string{
	"holdings":    "holdings.md",
	"closed":      "closed.md",
	"performance": "performance.md",
	"stocks":      "stocks.md",
	"summary":     "summary.md",
	"rebalance":   "rebalance.md",
}

// RenderHoldings renders positions, cash, broker mismatches and closed positions.
func RenderHoldings(h *Holdings) string {
	return renderTemplate("main", "{{ template \"holdings\" . }}\n{{ template \"closed\" .Closed }}", h)
}

// RenderClosed renders closed positions only.
func RenderClosed(closed []folio.ClosedPosition) string {
	return renderTemplate("main", "{{ template \"closed\" . }}", closed)
}

// RenderPerformance renders the TWR, its sub-periods and stock returns.
func RenderPerformance(p *folio.PortfolioPerformance) string {
	return renderTemplate("main", "{{ template \"performance\" . }}", p)
}

// RenderSummary renders the anchored summary.
func RenderSummary(s *folio.Summary) string {
	return renderTemplate("main", "{{ template \"summary\" . }}", s)
}

// RenderRebalance renders weight and ATR suggestions.
func RenderRebalance(r *Rebalance) string {
	return renderTemplate("main", "{{ template \"rebalance\" . }}", r)
}

// RenderReport renders every section of r.
func RenderReport(r *Report) string {
	main, err := fs.ReadFile(templates, "templates/report.md")
	if err != nil {
		return fmt.Sprintf("error reading main template: %v", err)
	}
	return renderTemplate("report", string(main), r)
}

// renderTemplate is a generic utility to render a main template that depends on the partials.
func renderTemplate(templateName, main string, data any) string {
	tmpl, err := template.New(templateName).Funcs(funcs).Parse(main)
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", templateName, err)
	}
	for name, file := range partials {
		content, err := fs.ReadFile(templates, "templates/"+file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}

const htmlPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8">
<style>
body { font-family: -apple-system, Helvetica, Arial, sans-serif; font-size: 14px; color: #222; }
table { border-collapse: collapse; margin: 8px 0 16px; }
th, td { border: 1px solid #ddd; padding: 4px 8px; }
th { background: #f3f5f7; }
</style></head><body>
%s</body></html>
`

// HTML converts a markdown report into a standalone HTML page, tables included.
func HTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("cannot convert report to HTML: %w", err)
	}
	return fmt.Sprintf(htmlPage, buf.String()), nil
}
