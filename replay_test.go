package folio

import (
	"errors"
	"reflect"
	"testing"
)

func TestReplayToDate_Scenario(t *testing.T) {
	l := scenario(t)

	t.Run("before the buy", func(t *testing.T) {
		s := mustReplay(t, l, "2025-01-01")
		if got, want := s.Cash(), USD(10000); !got.Equal(want) {
			t.Errorf("Cash() = %s, want %s", got, want)
		}
		if _, ok := s.Holding("AAPL.US"); ok {
			t.Errorf("AAPL.US held before it was bought")
		}
	})

	t.Run("on the day of the buy", func(t *testing.T) {
		s := mustReplay(t, l, "2025-01-02")
		if got, want := s.Cash(), USD(8999); !got.Equal(want) {
			t.Errorf("Cash() = %s, want %s", got, want)
		}
		h, ok := s.Holding("AAPL.US")
		if !ok {
			t.Fatalf("AAPL.US not held")
		}
		if got, want := h.Quantity, Q(10); !got.Equal(want) {
			t.Errorf("Quantity = %s, want %s", got, want)
		}
		if got, want := h.CostBasis, USD(100.10); !got.Equal(want) {
			t.Errorf("CostBasis = %s, want %s", got, want)
		}
	})
}

func TestReplayToDate_AverageCost(t *testing.T) {
	l := mustLedger(t,
		[]TradeRecord{
			buy("o1", "2025-01-02 10:00", "AAPL.US", 10, 100, 0),
			buy("o2", "2025-01-03 10:00", "AAPL.US", 10, 120, 0),
			sell("o3", "2025-01-04 10:00", "AAPL.US", 5, 130, 2),
		},
		[]CashFlowRecord{deposit("c1", "2025-01-01 10:00", 5000)},
	)
	s := mustReplay(t, l, "2025-01-04")
	h, _ := s.Holding("AAPL.US")
	if got, want := h.Quantity, Q(15); !got.Equal(want) {
		t.Errorf("Quantity = %s, want %s", got, want)
	}
	// a sell does not move the average cost.
	if got, want := h.CostBasis, USD(110); !got.Equal(want) {
		t.Errorf("CostBasis = %s, want %s", got, want)
	}
	// 5000 - 1000 - 1200 + 650 - 2
	if got, want := s.Cash(), USD(3448); !got.Equal(want) {
		t.Errorf("Cash() = %s, want %s", got, want)
	}
	// (130 - 110) * 5 - 2
	if got, want := s.Realized("AAPL.US"), USD(98); !got.Equal(want) {
		t.Errorf("Realized() = %s, want %s", got, want)
	}
}

func TestReplayToDate_Overdraft(t *testing.T) {
	t.Run("selling more than held", func(t *testing.T) {
		l := mustLedger(t,
			[]TradeRecord{
				buy("o1", "2025-01-02 10:00", "AAPL.US", 10, 100, 0),
				sell("o2", "2025-01-03 10:00", "AAPL.US", 15, 100, 0),
			},
			[]CashFlowRecord{deposit("c1", "2025-01-01 10:00", 10000)},
		)
		_, err := l.Replay(Replayer{}, d("2025-01-03"))
		var overdraft *OverdraftPositionError
		if !errors.As(err, &overdraft) {
			t.Fatalf("Replay() error = %v, want an OverdraftPositionError", err)
		}
		if overdraft.ID != "o2" || !overdraft.Held.Equal(Q(10)) || !overdraft.Requested.Equal(Q(15)) {
			t.Errorf("unexpected error content: %+v", overdraft)
		}
		// the day before is still fine.
		mustReplay(t, l, "2025-01-02")
	})

	t.Run("selling with a fee beyond the balance", func(t *testing.T) {
		l := mustLedger(t,
			[]TradeRecord{
				buy("o1", "2025-01-02 10:00", "AAPL.US", 1, 1, 0),
				sell("o2", "2025-01-03 10:00", "AAPL.US", 1, 1, 5),
			},
			[]CashFlowRecord{deposit("c1", "2025-01-01 10:00", 1)},
		)
		_, err := l.Replay(Replayer{}, d("2025-01-03"))
		var overdraft *OverdraftCashError
		if !errors.As(err, &overdraft) {
			t.Fatalf("Replay() error = %v, want an OverdraftCashError", err)
		}
		if overdraft.ID != "o2" || !overdraft.Amount.Equal(USD(-4)) {
			t.Errorf("unexpected error content: %+v", overdraft)
		}

		s, err := l.Replay(Replayer{AllowNegativeCash: true}, d("2025-01-03"))
		if err != nil {
			t.Fatalf("Replay(AllowNegativeCash) unexpected error: %v", err)
		}
		if got, want := s.Cash(), USD(-4); !got.Equal(want) {
			t.Errorf("Cash() = %s, want %s", got, want)
		}
	})

	t.Run("withdrawing more than the balance", func(t *testing.T) {
		l := mustLedger(t, nil, []CashFlowRecord{
			deposit("c1", "2025-01-01 10:00", 100),
			withdraw("c2", "2025-01-02 10:00", 150),
		})
		_, err := l.Replay(Replayer{}, d("2025-01-02"))
		var overdraft *OverdraftCashError
		if !errors.As(err, &overdraft) {
			t.Fatalf("Replay() error = %v, want an OverdraftCashError", err)
		}

		s, err := l.Replay(Replayer{AllowNegativeCash: true}, d("2025-01-02"))
		if err != nil {
			t.Fatalf("Replay(AllowNegativeCash) unexpected error: %v", err)
		}
		if got, want := s.Cash(), USD(-50); !got.Equal(want) {
			t.Errorf("Cash() = %s, want %s", got, want)
		}
	})

	t.Run("buying beyond the balance", func(t *testing.T) {
		l := mustLedger(t, []TradeRecord{buy("o1", "2025-01-02 10:00", "AAPL.US", 10, 100, 1)}, nil)
		_, err := l.Replay(Replayer{}, d("2025-01-02"))
		var overdraft *OverdraftCashError
		if !errors.As(err, &overdraft) {
			t.Fatalf("Replay() error = %v, want an OverdraftCashError", err)
		}
	})
}

func TestReplayToDate_SameTimeDepositFundsBuy(t *testing.T) {
	l := mustLedger(t,
		[]TradeRecord{buy("a", "2025-01-02 10:00", "AAPL.US", 1, 100, 0)},
		[]CashFlowRecord{deposit("z", "2025-01-02 10:00", 100)},
	)
	s := mustReplay(t, l, "2025-01-02")
	if !s.Cash().IsZero() {
		t.Errorf("Cash() = %s, want 0", s.Cash())
	}
}

func TestReplayToDate_Deterministic(t *testing.T) {
	l := mustLedger(t,
		[]TradeRecord{
			buy("o1", "2025-01-02 10:00", "AAPL.US", 3, 101.37, 0.5),
			buy("o2", "2025-01-02 10:00", "MSFT.US", 7, 412.1, 0.5),
			sell("o3", "2025-01-05 10:00", "AAPL.US", 1, 99.9, 0.5),
		},
		[]CashFlowRecord{
			deposit("c1", "2025-01-01 10:00", 5000),
			dividend("c2", "2025-01-04 10:00", 1.23),
		},
	)
	a := mustReplay(t, l, "2025-01-05")
	b := mustReplay(t, l, "2025-01-05")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("two replays differ:\n%+v\n%+v", a, b)
	}
}

func TestReplayToDate_Conservation(t *testing.T) {
	l := mustLedger(t,
		[]TradeRecord{
			buy("o1", "2025-01-02 10:00", "AAPL.US", 10, 100, 0),
			buy("o2", "2025-01-02 11:00", "MSFT.US", 4, 250, 0),
			sell("o3", "2025-01-03 10:00", "MSFT.US", 4, 250, 0),
			sell("o4", "2025-01-03 11:00", "AAPL.US", 10, 100, 0),
		},
		[]CashFlowRecord{deposit("c1", "2025-01-01 10:00", 2500)},
	)
	s := mustReplay(t, l, "2025-01-03")
	if got, want := s.Cash(), USD(2500); !got.Equal(want) {
		t.Errorf("Cash() = %s, want %s", got, want)
	}
	if got := s.Symbols(); len(got) != 0 {
		t.Errorf("Symbols() = %v, want none", got)
	}
}

func TestState_ClosedPositions(t *testing.T) {
	l := mustLedger(t,
		[]TradeRecord{
			buy("o1", "2025-01-02 10:00", "AAPL.US", 10, 100, 1),
			sell("o2", "2025-01-10 10:00", "AAPL.US", 4, 110, 1),
			sell("o3", "2025-01-20 10:00", "AAPL.US", 6, 90, 1),
			buy("o4", "2025-01-21 10:00", "AAPL.US", 1, 95, 0),
		},
		[]CashFlowRecord{deposit("c1", "2025-01-01 10:00", 2000)},
	)
	s := mustReplay(t, l, "2025-01-31")
	closed := s.ClosedPositions()
	if len(closed) != 1 {
		t.Fatalf("ClosedPositions() = %d positions, want 1", len(closed))
	}
	c := closed[0]
	if c.Opened != d("2025-01-02") || c.Closed != d("2025-01-20") {
		t.Errorf("round = %s..%s, want 2025-01-02..2025-01-20", c.Opened, c.Closed)
	}
	if !c.Bought.Equal(Q(10)) || !c.Sold.Equal(Q(10)) {
		t.Errorf("bought/sold = %s/%s, want 10/10", c.Bought, c.Sold)
	}
	// basis 100.1: (110-100.1)*4-1 + (90-100.1)*6-1 = 38.6 - 61.6
	if got, want := c.Realized, USD(-23); !got.Equal(want) {
		t.Errorf("Realized = %s, want %s", got, want)
	}
	// proceeds - cost = 439 + 539 - 1001
	if got, want := c.Proceeds.Sub(c.Cost), USD(-23); !got.Equal(want) {
		t.Errorf("Proceeds - Cost = %s, want %s", got, want)
	}
	// the new round is still open.
	if h, ok := s.Holding("AAPL.US"); !ok || !h.Quantity.Equal(Q(1)) {
		t.Errorf("Holding(AAPL.US) = %v, %v; want 1 share", h, ok)
	}
}

func TestCheckConsistency(t *testing.T) {
	s := mustReplay(t, scenario(t), "2025-01-02")
	if got := CheckConsistency(s, map[string]Quantity{"AAPL.US": Q(10)}); len(got) != 0 {
		t.Errorf("CheckConsistency() = %v, want none", got)
	}
	got := CheckConsistency(s, map[string]Quantity{"AAPL.US": Q(12), "TSLA.US": Q(1)})
	want := []Mismatch{
		{Symbol: "AAPL.US", Replayed: Q(10), Broker: Q(12)},
		{Symbol: "TSLA.US", Replayed: Quantity{}, Broker: Q(1)},
	}
	if len(got) != len(want) {
		t.Fatalf("CheckConsistency() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].Symbol != want[i].Symbol || !got[i].Replayed.Equal(want[i].Replayed) || !got[i].Broker.Equal(want[i].Broker) {
			t.Errorf("mismatch #%d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCheckConsistency_BothDirections(t *testing.T) {
	l := mustLedger(t,
		[]TradeRecord{
			buy("o1", "2025-01-02 10:00", "AAPL.US", 10, 100, 0),
			buy("o2", "2025-01-02 11:00", "MSFT.US", 4, 250, 0),
		},
		[]CashFlowRecord{deposit("c1", "2025-01-01 10:00", 5000)},
	)
	s := mustReplay(t, l, "2025-01-03")
	broker := map[string]Quantity{"AAPL.US": Q(10), "MSFT.US": Q(3), "TSLA.US": Q(2)}

	got := CheckConsistency(s, broker)
	if len(got) != 2 {
		t.Fatalf("CheckConsistency() = %v, want 2 mismatches", got)
	}
	if got[0].Symbol != "MSFT.US" || !got[0].Replayed.Equal(Q(4)) || !got[0].Broker.Equal(Q(3)) {
		t.Errorf("mismatch[0] = %+v, want MSFT.US 4 vs 3", got[0])
	}
	if got[1].Symbol != "TSLA.US" || !got[1].Replayed.IsZero() || !got[1].Broker.Equal(Q(2)) {
		t.Errorf("mismatch[1] = %+v, want TSLA.US 0 vs 2", got[1])
	}

	if got := CheckConsistency(s, map[string]Quantity{"AAPL.US": Q(10), "MSFT.US": Q(4)}); len(got) != 0 {
		t.Errorf("CheckConsistency() = %v, want none", got)
	}
}
