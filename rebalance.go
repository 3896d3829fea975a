package folio

import (
	"maps"
	"slices"
)

// Action is what a rebalancing suggestion recommends.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
	ActionFlag Action = "flag" // held without a target weight
	ActionAdd  Action = "add"  // price below its ATR band
	ActionTrim Action = "trim" // price above its ATR band
)

// Targets maps symbols to their target weight of the NAV. Weights need not sum to one, the
// residual is the cash target.
type Targets map[string]Ratio

// RebalanceSuggestion is the weight-based suggestion for one symbol.
type RebalanceSuggestion struct {
	Symbol        string
	Action        Action
	HasTarget     bool
	CurrentWeight Ratio
	TargetWeight  Ratio
	Delta         Ratio // target minus current
	Price         Money
	ShareDelta    Quantity // signed, whole shares
	Value         Money    // ShareDelta × Price
	Triggered     bool     // |Delta| > threshold
	Err           error    // set when the symbol could not be sized
}

// WeightBasedRebalance compares the current weight of every position to its target.
//
// A suggestion is triggered when the weight drifts from the target by more than threshold.
// The share delta moves the weight back to target, rounded toward zero. Targeted symbols
// without a holding are suggested as buys at their quote. Held symbols without a target are
// flagged. Suggestions are sorted by symbol, and nil is returned when nav is not positive.
func WeightBasedRebalance(positions []PositionRow, nav Money, targets Targets, threshold Ratio, quotes PriceLookup) []RebalanceSuggestion {
	if !nav.IsPositive() {
		return nil
	}
	rows := make(map[string]PositionRow, len(positions))
	for _, p := range positions {
		rows[p.Symbol] = p
	}

	symbols := slices.Collect(maps.Keys(rows))
	for symbol := range targets {
		if _, held := rows[symbol]; !held {
			symbols = append(symbols, symbol)
		}
	}
	slices.Sort(symbols)

	suggestions := make([]RebalanceSuggestion, 0, len(symbols))
	for _, symbol := range symbols {
		row, held := rows[symbol]
		target, hasTarget := targets[symbol]
		s := RebalanceSuggestion{Symbol: symbol, HasTarget: hasTarget, TargetWeight: target, Price: row.Price}
		if held {
			s.CurrentWeight = row.MarketValue.Ratio(nav)
		}
		if !hasTarget {
			s.Action = ActionFlag
			suggestions = append(suggestions, s)
			continue
		}
		s.Delta = target.Sub(s.CurrentWeight)
		s.Triggered = s.Delta.Abs().GreaterThan(threshold)
		s.Action = ActionHold

		if !held {
			price, ok := quotes.Price(symbol)
			if !ok || !price.IsPositive() {
				s.Err = &MissingPriceError{Symbol: symbol}
				suggestions = append(suggestions, s)
				continue
			}
			s.Price = price
		}
		if s.Triggered && s.Price.IsPositive() {
			s.ShareDelta = nav.MulRatio(s.Delta).DivPrice(s.Price).Truncate()
			s.Value = s.Price.Mul(s.ShareDelta)
			switch {
			case s.ShareDelta.IsPositive():
				s.Action = ActionBuy
			case s.ShareDelta.IsNegative():
				s.Action = ActionSell
			}
		}
		suggestions = append(suggestions, s)
	}
	return suggestions
}

// Constrain caps suggestions to what can be executed: buys are limited by cash, in
// suggestion order and floored to whole shares, and sells by the held quantity.
//
// A suggestion reduced to zero shares becomes a hold. The input is not modified.
func Constrain(suggestions []RebalanceSuggestion, cash Money, s *State) []RebalanceSuggestion {
	out := slices.Clone(suggestions)
	for i, sg := range out {
		switch sg.Action {
		case ActionBuy:
			affordable := Quantity{}
			if cash.IsPositive() && sg.Price.IsPositive() {
				affordable = cash.DivPrice(sg.Price).Floor()
			}
			if affordable.LessThan(sg.ShareDelta) {
				sg.ShareDelta = affordable
			}
			cash = cash.Sub(sg.Price.Mul(sg.ShareDelta))
		case ActionSell:
			h, _ := s.Holding(sg.Symbol)
			if sg.ShareDelta.Neg().GreaterThan(h.Quantity) {
				sg.ShareDelta = h.Quantity.Neg()
			}
		default:
			continue
		}
		sg.Value = sg.Price.Mul(sg.ShareDelta)
		if sg.ShareDelta.IsZero() {
			sg.Action = ActionHold
		}
		out[i] = sg
	}
	return out
}
