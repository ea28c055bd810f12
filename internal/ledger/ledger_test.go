package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/events"
)

var fixedNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testLedger(pub events.Publisher, opts Options) *Ledger {
	l := New(pub, opts)
	l.now = func() time.Time { return fixedNow }
	return l
}

func sampleDebt() core.Debt {
	return core.Debt{
		ID:                    "d1",
		Creditor:              "Banco Azul",
		Description:           "Empréstimo pessoal",
		InitialAmount:         dec("1200"),
		CurrentAmount:         dec("1000"),
		InterestRate:          dec("2"),
		Installment:           dec("150"),
		RemainingInstallments: 3,
		Balance:               dec("1000"),
		StartDate:             core.NewDate(2024, time.January, 10),
		Status:                core.DebtCurrent,
	}
}

func TestProcessPayment(t *testing.T) {
	tests := []struct {
		name          string
		debt          func() core.Debt
		amount        string
		wantApplied   bool
		wantBalance   string
		wantRemaining int
	}{
		{"regular installment", sampleDebt, "150", true, "850", 2},
		{"overpayment clamps to zero", sampleDebt, "5000", true, "0", 2},
		{"negative amount is read as its magnitude", sampleDebt, "-100", true, "900", 2},
		{
			"last installment",
			func() core.Debt { d := sampleDebt(); d.RemainingInstallments = 1; return d },
			"150", true, "850", 0,
		},
		{
			"no installments left is a no-op",
			func() core.Debt { d := sampleDebt(); d.RemainingInstallments = 0; return d },
			"150", false, "1000", 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.debt()
			before.Status = core.DebtOverdue
			debts := []core.Debt{before}

			out, applied := testLedger(nil, DefaultOptions()).ProcessPayment(context.Background(), debts, "d1", dec(tt.amount))
			if applied != tt.wantApplied {
				t.Fatalf("applied = %v, want %v", applied, tt.wantApplied)
			}
			after := out[0]
			if !after.Balance.Equal(dec(tt.wantBalance)) {
				t.Errorf("balance = %s, want %s", after.Balance, tt.wantBalance)
			}
			if after.RemainingInstallments != tt.wantRemaining {
				t.Errorf("remaining = %d, want %d", after.RemainingInstallments, tt.wantRemaining)
			}
			if after.Balance.GreaterThan(before.Balance) {
				t.Error("payment increased the balance")
			}
			if tt.wantApplied {
				if after.Status != core.DebtCurrent {
					t.Errorf("status = %q, want current", after.Status)
				}
				if after.LastPayment != core.DateOf(fixedNow) {
					t.Errorf("last payment = %s", after.LastPayment)
				}
				if debts[0].Balance.Equal(after.Balance) {
					t.Error("input slice was modified in place")
				}
			} else if after.Status != core.DebtOverdue {
				t.Error("no-op payment changed the status")
			}
		})
	}
}

func TestProcessPayment_MissingDebt(t *testing.T) {
	debts := []core.Debt{sampleDebt()}
	published := 0
	pub := events.PublisherFunc(func(context.Context, events.DebtPayment) error {
		published++
		return nil
	})

	out, applied := testLedger(pub, DefaultOptions()).ProcessPayment(context.Background(), debts, "missing", dec("10"))
	if applied {
		t.Fatal("payment on a missing debt should not apply")
	}
	if !out[0].Balance.Equal(dec("1000")) {
		t.Fatal("other debts must be unchanged")
	}
	if published != 0 {
		t.Fatal("no event should be published for a missing debt")
	}
}

func TestProcessPayment_PublishesEvent(t *testing.T) {
	bus := events.NewBus()
	var got []events.DebtPayment
	bus.Subscribe(func(_ context.Context, e events.DebtPayment) error {
		got = append(got, e)
		return nil
	})

	_, applied := testLedger(bus, DefaultOptions()).ProcessPayment(context.Background(), []core.Debt{sampleDebt()}, "d1", dec("150"))
	if !applied {
		t.Fatal("payment should apply")
	}
	if len(got) != 1 {
		t.Fatalf("published %d events, want 1", len(got))
	}
	if got[0].DebtID != "d1" || !got[0].Amount.Equal(dec("150")) || !got[0].Timestamp.Equal(fixedNow) {
		t.Errorf("event = %+v", got[0])
	}
}

func TestProcessPayment_PublishFailureKeepsPayment(t *testing.T) {
	pub := events.PublisherFunc(func(context.Context, events.DebtPayment) error {
		return errors.New("broker down")
	})
	out, applied := testLedger(pub, DefaultOptions()).ProcessPayment(context.Background(), []core.Debt{sampleDebt()}, "d1", dec("150"))
	if !applied || !out[0].Balance.Equal(dec("850")) {
		t.Fatalf("payment should stand when publishing fails: applied=%v balance=%s", applied, out[0].Balance)
	}
}

func debtPayment(debtID, category string, period core.Period) core.Transaction {
	return core.Transaction{
		ID:           "tx-" + debtID,
		Date:         core.NewDate(period.Year, period.Month, 5),
		Description:  "Parcela",
		Amount:       dec("150"),
		Type:         core.Expense,
		Category:     category,
		Account:      "Conta Principal",
		Month:        int(period.Month),
		Year:         period.Year,
		LinkedDebtID: debtID,
	}
}

func TestApplyMonthlyCapitalizationAndStatus(t *testing.T) {
	may := core.NewPeriod(2024, 5)

	tests := []struct {
		name        string
		opts        Options
		debt        func() core.Debt
		txs         []core.Transaction
		wantBalance string
		wantStatus  core.DebtStatus
	}{
		{
			name:        "unpaid since start beyond threshold",
			opts:        DefaultOptions(),
			debt:        sampleDebt,
			wantBalance: "1020",
			wantStatus:  core.DebtOverdue,
		},
		{
			name: "unpaid but recent payment keeps status",
			opts: DefaultOptions(),
			debt: func() core.Debt {
				d := sampleDebt()
				d.LastPayment = core.NewDate(2024, time.April, 2)
				return d
			},
			wantBalance: "1020",
			wantStatus:  core.DebtCurrent,
		},
		{
			name: "gap of exactly two months is not overdue",
			opts: DefaultOptions(),
			debt: func() core.Debt {
				d := sampleDebt()
				d.LastPayment = core.NewDate(2024, time.March, 28)
				return d
			},
			wantBalance: "1020",
			wantStatus:  core.DebtCurrent,
		},
		{
			name: "linked payment this month",
			opts: DefaultOptions(),
			debt: func() core.Debt {
				d := sampleDebt()
				d.Status = core.DebtOverdue
				return d
			},
			txs:         []core.Transaction{debtPayment("d1", "Dívidas", may)},
			wantBalance: "1000",
			wantStatus:  core.DebtCurrent,
		},
		{
			name:        "payment linked to another debt",
			opts:        DefaultOptions(),
			debt:        sampleDebt,
			txs:         []core.Transaction{debtPayment("d2", "Dívidas", may)},
			wantBalance: "1020",
			wantStatus:  core.DebtOverdue,
		},
		{
			name:        "payment in another month",
			opts:        DefaultOptions(),
			debt:        sampleDebt,
			txs:         []core.Transaction{debtPayment("d1", "Dívidas", may.Add(-1))},
			wantBalance: "1020",
			wantStatus:  core.DebtOverdue,
		},
		{
			name:        "legacy label payment",
			opts:        DefaultOptions(),
			debt:        sampleDebt,
			txs:         []core.Transaction{debtPayment("", "Dívidas", may)},
			wantBalance: "1000",
			wantStatus:  core.DebtCurrent,
		},
		{
			name:        "legacy label ignored when disabled",
			opts:        Options{LegacyLabelMatching: false, OverdueAfterMonths: 2},
			debt:        sampleDebt,
			txs:         []core.Transaction{debtPayment("", "Dívidas", may)},
			wantBalance: "1020",
			wantStatus:  core.DebtOverdue,
		},
		{
			name: "suspended is never changed by the cycle",
			opts: DefaultOptions(),
			debt: func() core.Debt {
				d := sampleDebt()
				d.Status = core.DebtSuspended
				return d
			},
			wantBalance: "1020",
			wantStatus:  core.DebtSuspended,
		},
		{
			name: "started this month",
			opts: DefaultOptions(),
			debt: func() core.Debt {
				d := sampleDebt()
				d.StartDate = core.NewDate(2024, time.May, 1)
				return d
			},
			wantBalance: "1000",
			wantStatus:  core.DebtCurrent,
		},
		{
			name: "fully paid debt is untouched",
			opts: DefaultOptions(),
			debt: func() core.Debt {
				d := sampleDebt()
				d.RemainingInstallments = 0
				return d
			},
			wantBalance: "1000",
			wantStatus:  core.DebtCurrent,
		},
		{
			name: "rounds to cents",
			opts: DefaultOptions(),
			debt: func() core.Debt {
				d := sampleDebt()
				d.Balance = dec("333.33")
				d.InterestRate = dec("1.99")
				return d
			},
			wantBalance: "339.96",
			wantStatus:  core.DebtOverdue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := []core.Debt{tt.debt()}
			out := testLedger(nil, tt.opts).ApplyMonthlyCapitalizationAndStatus(in, tt.txs, may)
			if !out[0].Balance.Equal(dec(tt.wantBalance)) {
				t.Errorf("balance = %s, want %s", out[0].Balance, tt.wantBalance)
			}
			if out[0].Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", out[0].Status, tt.wantStatus)
			}
			if !in[0].Balance.Equal(tt.debt().Balance) {
				t.Error("input slice was modified in place")
			}
		})
	}
}

func TestApplyMonthlyCapitalization_IdempotentPerPeriod(t *testing.T) {
	l := testLedger(nil, DefaultOptions())
	may := core.NewPeriod(2024, 5)
	debts := []core.Debt{sampleDebt()}

	once := l.ApplyMonthlyCapitalizationAndStatus(debts, nil, may)
	twice := l.ApplyMonthlyCapitalizationAndStatus(once, nil, may)
	if !twice[0].Balance.Equal(dec("1020")) {
		t.Fatalf("second run in the same period changed the balance to %s", twice[0].Balance)
	}
	if twice[0].LastCapitalized != may {
		t.Fatalf("last capitalized = %v, want %v", twice[0].LastCapitalized, may)
	}

	earlier := l.ApplyMonthlyCapitalizationAndStatus(twice, nil, may.Add(-1))
	if !earlier[0].Balance.Equal(dec("1020")) {
		t.Fatal("an earlier period must not capitalize again")
	}

	june := l.ApplyMonthlyCapitalizationAndStatus(twice, nil, may.Add(1))
	if !june[0].Balance.Equal(dec("1040.4")) {
		t.Fatalf("next period balance = %s, want 1040.4", june[0].Balance)
	}
}

func TestAddUpdateDelete(t *testing.T) {
	d := sampleDebt()
	d.Status = ""
	d.CurrentAmount = decimal.Zero

	debts, err := Add(nil, d)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if debts[0].Status != core.DebtCurrent || !debts[0].CurrentAmount.Equal(dec("1000")) {
		t.Errorf("defaults not applied: %+v", debts[0])
	}
	if _, err := Add(debts, d); err == nil {
		t.Error("duplicate id should be rejected")
	}
	bad := sampleDebt()
	bad.ID = "d2"
	bad.Balance = dec("-1")
	if _, err := Add(debts, bad); !errors.Is(err, core.ErrNegativeBalance) {
		t.Errorf("Add() error = %v, want ErrNegativeBalance", err)
	}

	changed := debts[0]
	changed.Creditor = "Banco Verde"
	updated, ok, err := Update(debts, changed)
	if err != nil || !ok || updated[0].Creditor != "Banco Verde" {
		t.Fatalf("Update() = %v, %v, %v", updated, ok, err)
	}
	if debts[0].Creditor != "Banco Azul" {
		t.Error("Update modified its input")
	}
	ghost := sampleDebt()
	ghost.ID = "ghost"
	if _, ok, err := Update(debts, ghost); ok || err != nil {
		t.Error("Update of a missing debt should be a silent no-op")
	}

	remaining, ok := Delete(updated, "d1")
	if !ok || len(remaining) != 0 {
		t.Fatalf("Delete() = %v, %v", remaining, ok)
	}
	if _, ok := Delete(updated, "ghost"); ok {
		t.Error("Delete of a missing debt should report false")
	}
}

func TestSummarize(t *testing.T) {
	a := sampleDebt()
	b := sampleDebt()
	b.ID = "d2"
	b.Balance = dec("500")
	b.InterestRate = dec("3")
	b.Installment = dec("100")
	b.Status = core.DebtOverdue
	c := sampleDebt()
	c.ID = "d3"
	c.Balance = decimal.Zero
	c.InterestRate = dec("1")
	c.RemainingInstallments = 0

	s := Summarize([]core.Debt{a, b, c})
	if !s.TotalOutstanding.Equal(dec("1500")) {
		t.Errorf("total = %s", s.TotalOutstanding)
	}
	if !s.AverageRate.Equal(dec("2")) {
		t.Errorf("average rate = %s", s.AverageRate)
	}
	if !s.MonthlyInstallments.Equal(dec("250")) {
		t.Errorf("installments = %s", s.MonthlyInstallments)
	}
	if s.ActiveCount != 2 || s.OverdueCount != 1 {
		t.Errorf("counts = %d active, %d overdue", s.ActiveCount, s.OverdueCount)
	}

	if empty := Summarize(nil); !empty.AverageRate.IsZero() {
		t.Errorf("empty average = %s", empty.AverageRate)
	}
}

func TestEvolution(t *testing.T) {
	a := sampleDebt()
	b := sampleDebt()
	b.ID = "d2"
	b.Balance = dec("500")
	b.StartDate = core.NewDate(2024, time.April, 20)
	b.RemainingInstallments = 0
	c := sampleDebt()
	c.ID = "d3"
	c.Balance = dec("200")
	c.StartDate = core.NewDate(2024, time.March, 1)

	points := Evolution([]core.Debt{a, b, c}, core.NewPeriod(2024, 5), 12)
	if len(points) != 12 {
		t.Fatalf("got %d points", len(points))
	}
	if points[0].Period != core.NewPeriod(2023, 6) || points[11].Period != core.NewPeriod(2024, 5) {
		t.Fatalf("range = %v..%v", points[0].Period, points[11].Period)
	}

	tests := []struct {
		name        string
		point       EvolutionPoint
		outstanding string
		active      int
	}{
		{"before any start", points[6], "0", 0},
		{"started mid-month", points[7], "0", 0},
		{"first full month", points[8], "1000", 1},
		{"started on the first", points[9], "1200", 2},
		{"settled debt counted", points[11], "1700", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.point.Outstanding.Equal(dec(tt.outstanding)) || tt.point.ActiveDebts != tt.active {
				t.Errorf("%s = %s, %d active, want %s, %d", tt.point.Period, tt.point.Outstanding, tt.point.ActiveDebts, tt.outstanding, tt.active)
			}
		})
	}
}
