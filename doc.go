// Package folio reconstructs a brokerage portfolio from its raw trade and cash-flow records
// and derives performance and rebalancing metrics from that reconstruction.
//
// Nothing computed is stored: every query replays the records from the start.
//
//   - BuildLedger deduplicates and orders records into a Ledger of events.
//   - Replayer folds events into the State of the portfolio at the end of any day, and NAV
//     values it.
//   - CalculatePortfolioPerformance computes the time-weighted return of a window, split at
//     every deposit or withdrawal, and the price return of each symbol.
//   - NewSummary reports performance since the usual anchors (WoW, MTD, QTD, YTD...).
//   - WeightBasedRebalance and AtrBasedRebalance turn the current positions into suggestions.
//
// Amounts are exact decimals in a single currency. Market data and records persist as JSONL
// files that can be kept under version control.
package folio
