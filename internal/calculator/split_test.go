package calculator

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/brokewise/internal/fx"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name    string
		total   string
		n       int
		want    []string
		wantErr error
	}{
		{
			name:  "three-way split gives the cent to the first person",
			total: "100.00",
			n:     3,
			want:  []string{"33.34", "33.33", "33.33"},
		},
		{
			name:  "even division",
			total: "90",
			n:     3,
			want:  []string{"30", "30", "30"},
		},
		{
			name:  "single participant takes everything",
			total: "42.10",
			n:     1,
			want:  []string{"42.10"},
		},
		{
			name:  "total is rounded to cents first",
			total: "10.005",
			n:     2,
			want:  []string{"5.01", "5.00"},
		},
		{
			name:  "more people than cents",
			total: "0.02",
			n:     3,
			want:  []string{"0.02", "0", "0"},
		},
		{
			name:  "seven-way residual",
			total: "100",
			n:     7,
			want:  []string{"14.32", "14.28", "14.28", "14.28", "14.28", "14.28", "14.28"},
		},
		{
			name:    "no participants",
			total:   "10",
			n:       0,
			wantErr: ErrNoParticipants,
		},
		{
			name:    "zero total",
			total:   "0",
			n:       2,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative total",
			total:   "-5",
			n:       2,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "rounds to zero",
			total:   "0.004",
			n:       2,
			wantErr: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := Allocate(decimal.RequireFromString(tt.total), tt.n)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Allocate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Allocate() unexpected error: %v", err)
			}
			if len(shares) != len(tt.want) {
				t.Fatalf("Allocate() returned %d shares, want %d", len(shares), len(tt.want))
			}
			for i, w := range tt.want {
				if !shares[i].Equal(decimal.RequireFromString(w)) {
					t.Errorf("share[%d] = %s, want %s", i, shares[i], w)
				}
			}
		})
	}
}

func TestAllocate_SumIsExact(t *testing.T) {
	totals := []string{"0.01", "1", "9.99", "100", "1234.56", "99999.99"}
	for _, total := range totals {
		for n := 1; n <= 12; n++ {
			want := decimal.RequireFromString(total)
			shares, err := Allocate(want, n)
			if err != nil {
				t.Fatalf("Allocate(%s, %d) unexpected error: %v", total, n, err)
			}
			sum := decimal.Zero
			for i, s := range shares {
				if !s.Equal(s.Round(2)) {
					t.Errorf("Allocate(%s, %d) share[%d] = %s has sub-cent digits", total, n, i, s)
				}
				sum = sum.Add(s)
			}
			if !sum.Equal(want) {
				t.Errorf("Allocate(%s, %d) sums to %s", total, n, sum)
			}
		}
	}
}

func TestSplitPayments(t *testing.T) {
	rates := fx.NewGateway(staticRates())

	obligations, degraded, err := SplitPayments(context.Background(), rates, "usd",
		[]EntryDraft{
			{Person: "Alice", Amount: "50", Currency: "USD"},
			{Person: "Bob", Amount: "46", Currency: "EUR"},
		},
		[]string{"Alice", " Bob ", "Carol"})
	if err != nil {
		t.Fatalf("SplitPayments() unexpected error: %v", err)
	}
	if degraded {
		t.Error("SplitPayments() degraded = true, want false")
	}

	// 50 USD + 46 EUR (= 50 USD) = 100 USD over three people.
	want := []EntryDraft{
		{Person: "Alice", Amount: "33.34", Currency: "USD"},
		{Person: "Bob", Amount: "33.33", Currency: "USD"},
		{Person: "Carol", Amount: "33.33", Currency: "USD"},
	}
	if len(obligations) != len(want) {
		t.Fatalf("SplitPayments() returned %d obligations, want %d", len(obligations), len(want))
	}
	for i := range want {
		if obligations[i] != want[i] {
			t.Errorf("obligation[%d] = %+v, want %+v", i, obligations[i], want[i])
		}
	}
}

func TestSplitPayments_Errors(t *testing.T) {
	rates := fx.NewGateway(staticRates())
	pay := []EntryDraft{{Person: "Alice", Amount: "10", Currency: "USD"}}

	tests := []struct {
		name     string
		display  string
		payments []EntryDraft
		people   []string
		wantKind Kind
	}{
		{"unknown display currency", "XXX", pay, []string{"Alice"}, KindUnknownCurrency},
		{"no payments", "USD", nil, []string{"Alice"}, KindInvalidAmount},
		{"huge payment", "USD", []EntryDraft{{Person: "Alice", Amount: "9e99999999", Currency: "USD"}}, []string{"Alice"}, KindInvalidAmount},
		{"blank person", "USD", pay, []string{"Alice", " "}, KindInvalidParticipant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := SplitPayments(context.Background(), rates, tt.display, tt.payments, tt.people)
			if got := KindOf(err); got != tt.wantKind {
				t.Errorf("SplitPayments() kind = %q (err %v), want %q", got, err, tt.wantKind)
			}
		})
	}

	if _, _, err := SplitPayments(context.Background(), rates, "USD", pay, nil); !errors.Is(err, ErrNoParticipants) {
		t.Errorf("SplitPayments() with no people error = %v, want %v", err, ErrNoParticipants)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"12.50", "12.5"},
		{" 0.01 ", "0.01"},
		{"999999999999999.99", "999999999999999.99"},
		{"1.500000000000000000000", "1.5"},
		{"1e3", "1000"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.raw)
		if err != nil {
			t.Errorf("ParseAmount(%q) unexpected error: %v", tt.raw, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}

	for _, raw := range []string{"", "abc", "0", "-5", "1e50000000", "1e-50000000", "1e15", "0.0000000000001", "1234567890123456789012345678901234"} {
		if _, err := ParseAmount(raw); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ParseAmount(%q) error = %v, want %v", raw, err, ErrInvalidAmount)
		}
	}
}
