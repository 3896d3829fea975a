package folio

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side of a trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// FlowKind tags a cash movement.
type FlowKind string

const (
	Deposit    FlowKind = "deposit"
	Withdrawal FlowKind = "withdrawal"
	Dividend   FlowKind = "dividend"
	OtherFlow  FlowKind = "other"
)

// External reports whether the flow moves capital in or out of the portfolio.
func (k FlowKind) External() bool { return k == Deposit || k == Withdrawal }

// TradeRecord is a trade as read from a source, before validation.
//
// Records are promoted to an immutable Trade with Validate.
type TradeRecord struct {
	OrderID  string          `json:"order_id"`
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Fee      decimal.Decimal `json:"fee"`
	Time     time.Time       `json:"time"`
}

// equal compares the content of two records, decimal values compare by value.
func (r TradeRecord) equal(o TradeRecord) bool {
	return r.OrderID == o.OrderID &&
		r.Symbol == o.Symbol &&
		r.Side == o.Side &&
		r.Quantity.Equal(o.Quantity) &&
		r.Price.Equal(o.Price) &&
		r.Fee.Equal(o.Fee) &&
		r.Time.Equal(o.Time)
}

// Validate promotes the record to a Trade expressed in currency.
func (r TradeRecord) Validate(currency string) (Trade, error) {
	invalid := func(field, reason string) (Trade, error) {
		return Trade{}, &InvalidRecordError{ID: r.OrderID, Field: field, Reason: reason}
	}
	switch {
	case strings.TrimSpace(r.OrderID) == "":
		return invalid("order_id", "is required")
	case strings.TrimSpace(r.Symbol) == "":
		return invalid("symbol", "is required")
	case r.Side != Buy && r.Side != Sell:
		return invalid("side", "must be buy or sell, got "+string(r.Side))
	case !r.Quantity.IsPositive():
		return invalid("quantity", "must be positive")
	case !r.Price.IsPositive():
		return invalid("price", "must be positive")
	case r.Fee.IsNegative():
		return invalid("fee", "must not be negative")
	case r.Time.IsZero():
		return invalid("time", "is required")
	}
	return Trade{
		id:       r.OrderID,
		symbol:   r.Symbol,
		side:     r.Side,
		quantity: Q(r.Quantity),
		price:    M(r.Price, currency),
		fee:      M(r.Fee, currency),
		at:       r.Time.UTC(),
	}, nil
}

// CashFlowRecord is a cash movement as read from a source, before validation.
//
// Records are promoted to an immutable CashFlow with Validate.
type CashFlowRecord struct {
	SourceID    string          `json:"source_id"`
	Kind        FlowKind        `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Time        time.Time       `json:"time"`
	Description string          `json:"description,omitempty"`
}

func (r CashFlowRecord) equal(o CashFlowRecord) bool {
	return r.SourceID == o.SourceID &&
		r.Kind == o.Kind &&
		r.Amount.Equal(o.Amount) &&
		r.Time.Equal(o.Time) &&
		r.Description == o.Description
}

// Validate promotes the record to a CashFlow expressed in currency.
//
// Deposits and dividends must be inflows, withdrawals must be outflows.
func (r CashFlowRecord) Validate(currency string) (CashFlow, error) {
	invalid := func(field, reason string) (CashFlow, error) {
		return CashFlow{}, &InvalidRecordError{ID: r.SourceID, Field: field, Reason: reason}
	}
	switch {
	case strings.TrimSpace(r.SourceID) == "":
		return invalid("source_id", "is required")
	case r.Time.IsZero():
		return invalid("time", "is required")
	case r.Amount.IsZero():
		return invalid("amount", "must not be zero")
	}
	switch r.Kind {
	case Deposit, Dividend:
		if r.Amount.IsNegative() {
			return invalid("amount", "must be positive for a "+string(r.Kind))
		}
	case Withdrawal:
		if r.Amount.IsPositive() {
			return invalid("amount", "must be negative for a withdrawal")
		}
	case OtherFlow:
	default:
		return invalid("kind", "must be one of deposit, withdrawal, dividend, other, got "+string(r.Kind))
	}
	return CashFlow{
		id:     r.SourceID,
		kind:   r.Kind,
		amount: M(r.Amount, currency),
		at:     r.Time.UTC(),
		memo:   r.Description,
	}, nil
}

// Broker cash-flow codes.
const (
	brokerOutflow = 1
	brokerInflow  = 2

	brokerSettlement = 2 // stock settlement, already reflected by the trades
)

// NewBrokerCashFlow converts a cash flow in the broker's coded format.
//
// direction is 1 for an outflow and 2 for an inflow. Settlement flows (businessType 2) are
// skipped and ok is false. Inflows described as dividends are classified as such, other
// inflows are deposits and outflows are withdrawals. The amount sign is taken from direction.
func NewBrokerCashFlow(sourceID string, at time.Time, direction, businessType int, amount decimal.Decimal, description string) (r CashFlowRecord, ok bool) {
	if businessType == brokerSettlement {
		return CashFlowRecord{}, false
	}
	r = CashFlowRecord{SourceID: sourceID, Time: at, Description: description}
	switch direction {
	case brokerInflow:
		r.Kind, r.Amount = Deposit, amount.Abs()
		if strings.Contains(strings.ToLower(description), "div") {
			r.Kind = Dividend
		}
	case brokerOutflow:
		r.Kind, r.Amount = Withdrawal, amount.Abs().Neg()
	default:
		// left for Validate to reject
		r.Kind, r.Amount = FlowKind("direction-"+strconv.Itoa(direction)), amount
	}
	return r, true
}
