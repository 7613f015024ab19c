package money

import "testing"

func TestSplitEven_RemainderToFirstIndices(t *testing.T) {
	shares := SplitEven(1, 3)
	want := []int64{1, 0, 0}
	for i, w := range want {
		if shares[i] != w {
			t.Fatalf("SplitEven(1,3) = %v, want %v", shares, want)
		}
	}
}

func TestSplitEven_ExactSum(t *testing.T) {
	shares := SplitEven(10099, 7)
	var sum int64
	for _, s := range shares {
		sum += s
	}
	if sum != 10099 {
		t.Fatalf("sum = %d, want 10099", sum)
	}
}

func TestSplitEven_JPYNoFraction(t *testing.T) {
	shares := SplitEven(100, 3)
	var sum int64
	for _, s := range shares {
		sum += s
	}
	if sum != 100 {
		t.Fatalf("sum = %d, want 100", sum)
	}
	for _, s := range shares {
		if s != 33 && s != 34 {
			t.Fatalf("unexpected share %d", s)
		}
	}
}

func TestSplitWeighted_EqualWeightsRemainderByIndex(t *testing.T) {
	shares, err := SplitWeighted(1000, []int64{1, 1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int64{334, 333, 333}
	for i, w := range want {
		if shares[i] != w {
			t.Fatalf("SplitWeighted = %v, want %v", shares, want)
		}
	}
}

func TestSplitWeighted_SumConserved(t *testing.T) {
	shares, err := SplitWeighted(9973, []int64{3, 5, 1, 11})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum int64
	for _, s := range shares {
		sum += s
	}
	if sum != 9973 {
		t.Fatalf("sum = %d, want 9973", sum)
	}
}

func TestSplitWeighted_RejectsNonPositiveWeight(t *testing.T) {
	if _, err := SplitWeighted(100, []int64{1, 0}); err != ErrNonPositiveWeight {
		t.Fatalf("expected ErrNonPositiveWeight, got %v", err)
	}
	if _, err := SplitWeighted(100, []int64{1, -1}); err != ErrNonPositiveWeight {
		t.Fatalf("expected ErrNonPositiveWeight, got %v", err)
	}
}

func TestSplitExactPlusRemainder_FailsWhenExactExceedsTotal(t *testing.T) {
	_, err := SplitExactPlusRemainder(100, 150, []int64{1})
	if err != ErrExactExceedsTotal {
		t.Fatalf("expected ErrExactExceedsTotal, got %v", err)
	}
}

func TestSplitExactPlusRemainder_SplitsResidual(t *testing.T) {
	shares, err := SplitExactPlusRemainder(1000, 400, []int64{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum int64
	for _, s := range shares {
		sum += s
	}
	if sum != 600 {
		t.Fatalf("residual sum = %d, want 600", sum)
	}
}

func TestToDecimal_FormatsWithCurrencyPrecision(t *testing.T) {
	got, err := ToDecimal(1234, "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "12.34" {
		t.Fatalf("got %q, want %q", got, "12.34")
	}

	got, err = ToDecimal(100, "JPY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "100" {
		t.Fatalf("got %q, want %q", got, "100")
	}
}

func TestFromDecimal_RoundTrip(t *testing.T) {
	for _, tc := range []struct {
		minor    int64
		currency string
	}{
		{1234, "USD"},
		{100, "JPY"},
		{1, "USD"},
		{0, "USD"},
	} {
		s, err := ToDecimal(tc.minor, tc.currency)
		if err != nil {
			t.Fatalf("ToDecimal error: %v", err)
		}
		back, err := FromDecimal(s, tc.currency)
		if err != nil {
			t.Fatalf("FromDecimal error: %v", err)
		}
		if back != tc.minor {
			t.Fatalf("round trip %d %s -> %q -> %d", tc.minor, tc.currency, s, back)
		}
	}
}

func TestFromDecimal_RejectsExcessFractionalDigits(t *testing.T) {
	if _, err := FromDecimal("1.001", "USD"); err == nil {
		t.Fatal("expected error for too many fractional digits")
	}
}

func TestAmount_CurrencyMismatch(t *testing.T) {
	a, _ := New(100, "USD")
	b, _ := New(100, "EUR")
	if _, err := a.Add(b); err != ErrCurrencyMismatch {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestRound_HalfToEven(t *testing.T) {
	cases := []struct {
		num, den, want int64
	}{
		{5, 2, 2},  // 2.5 -> 2 (even)
		{7, 2, 4},  // 3.5 -> 4 (even)
		{3, 2, 2},  // 1.5 -> 2 (even)
		{1, 2, 0},  // 0.5 -> 0 (even)
		{-5, 2, -2},
	}
	for _, c := range cases {
		got := Round(c.num, c.den)
		if got != c.want {
			t.Fatalf("Round(%d,%d) = %d, want %d", c.num, c.den, got, c.want)
		}
	}
}
