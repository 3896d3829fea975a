package renderer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// sheet is a table of a spreadsheet.
type sheet struct {
	name   string
	header []string
	rows   [][]any
}

// WriteXLSX writes the report as a spreadsheet, one sheet per section.
func WriteXLSX(w io.Writer, r *Report) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#cfe2f3"}},
	})
	if err != nil {
		return err
	}

	for _, s := range sheets(r) {
		if _, err := f.NewSheet(s.name); err != nil {
			return err
		}
		for i, h := range s.header {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			if err := f.SetCellStr(s.name, cell, h); err != nil {
				return err
			}
		}
		last, _ := excelize.CoordinatesToCellName(len(s.header), 1)
		if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("cannot style %s: %w", s.name, err)
		}
		for j, row := range s.rows {
			cell, _ := excelize.CoordinatesToCellName(1, j+2)
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return err
			}
		}
	}
	// sheets are only created for present sections, the default one is then useless.
	if f.SheetCount > 1 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
		f.SetActiveSheet(0)
	}
	_, err = f.WriteTo(w)
	return err
}

func sheets(r *Report) []sheet {
	var list []sheet
	if h := r.Holdings; h != nil {
		s := sheet{name: "Holdings", header: []string{"Symbol", "Quantity", "Cost Basis", "Price", "Market Value", "Unrealized P&L", "Return", "Weight", "Daily P&L"}}
		for _, p := range h.Positions {
			s.rows = append(s.rows, []any{p.Symbol, p.Quantity.Decimal().InexactFloat64(), p.CostBasis.AsFloat(), p.Price.AsFloat(), p.MarketValue.AsFloat(), p.UnrealizedPnL.AsFloat(), p.UnrealizedReturn.AsFloat(), p.Weight.AsFloat(), p.DailyPnL.AsFloat()})
		}
		s.rows = append(s.rows, []any{"Cash", nil, nil, nil, h.Cash.AsFloat(), nil, nil, h.CashWeight.AsFloat()})
		s.rows = append(s.rows, []any{"NAV", nil, nil, nil, h.NAV.AsFloat()})
		list = append(list, s)
	}
	if p := r.Performance; p != nil {
		s := sheet{name: "Performance", header: []string{"Symbol", "Start", "Start Price", "End", "End Price", "Return"}}
		s.rows = append(s.rows, []any{"Portfolio (TWR)", p.Window.From.String(), nil, p.Window.To.String(), nil, p.TWR.AsFloat()})
		for _, st := range p.Stocks {
			s.rows = append(s.rows, []any{st.Symbol, st.StartDay.String(), st.StartPrice.AsFloat(), st.EndDay.String(), st.EndPrice.AsFloat(), st.Return.AsFloat()})
		}
		list = append(list, s)
	}
	if r.Rebalance != nil && len(r.Rebalance.Suggestions) > 0 {
		s := sheet{name: "Rebalance", header: []string{"Symbol", "Current", "Target", "Drift", "Action", "Shares", "Value"}}
		for _, sg := range r.Rebalance.Suggestions {
			action := string(sg.Action)
			if sg.Err != nil {
				action = sg.Err.Error()
			}
			s.rows = append(s.rows, []any{sg.Symbol, sg.CurrentWeight.AsFloat(), sg.TargetWeight.AsFloat(), sg.Delta.AsFloat(), action, sg.ShareDelta.Decimal().InexactFloat64(), sg.Value.AsFloat()})
		}
		list = append(list, s)
	}
	if r.Rebalance != nil && len(r.Rebalance.Bands) > 0 {
		s := sheet{name: "ATR", header: []string{"Symbol", "Price", "Center", "ATR", "Lower", "Upper", "Position", "Near", "Action"}}
		for _, b := range r.Rebalance.Bands {
			if b.Err != nil {
				s.rows = append(s.rows, []any{b.Symbol, nil, nil, nil, nil, nil, b.Err.Error()})
				continue
			}
			s.rows = append(s.rows, []any{b.Symbol, b.Price.AsFloat(), b.Center.AsFloat(), b.ATR.AsFloat(), b.Lower.AsFloat(), b.Upper.AsFloat(), b.Position.String(), b.Near, string(b.Action)})
		}
		list = append(list, s)
	}
	return list
}
