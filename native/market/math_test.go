package market

import (
	"math/big"
	"testing"
)

func eth(n string) *big.Int {
	f, ok := new(big.Rat).SetString(n)
	if !ok {
		panic("bad number: " + n)
	}
	wei := new(big.Rat).Mul(f, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)))
	if !wei.IsInt() {
		panic("not an integer wei amount: " + n)
	}
	return new(big.Int).Set(wei.Num())
}

func TestPlanTotals(t *testing.T) {
	cases := []struct {
		plan  InstallmentPlan
		total uint8
	}{
		{PlanNone, 0},
		{PlanThreeMonths, 3},
		{PlanSixMonths, 6},
		{PlanNineMonths, 9},
	}
	for _, tc := range cases {
		if got := tc.plan.TotalInstallments(); got != tc.total {
			t.Fatalf("plan %s: total installments = %d, want %d", tc.plan, got, tc.total)
		}
	}
	if InstallmentPlan(7).Valid() {
		t.Fatalf("plan 7 reported valid")
	}
}

func TestDownPaymentAndMonthly(t *testing.T) {
	price := eth("34")
	cases := []struct {
		plan    InstallmentPlan
		down    *big.Int
		monthly *big.Int
	}{
		{PlanNone, eth("34"), big.NewInt(0)},
		{PlanThreeMonths, eth("11.56"), eth("11.22")},
		{PlanSixMonths, eth("5.95"), eth("5.61")},
		{PlanNineMonths, eth("4.08"), eth("3.74")},
	}
	for _, tc := range cases {
		if got := DownPayment(tc.plan, price); got.Cmp(tc.down) != 0 {
			t.Fatalf("plan %s: down payment = %s, want %s", tc.plan, got, tc.down)
		}
		if got := MonthlyInstallment(tc.plan, price); got.Cmp(tc.monthly) != 0 {
			t.Fatalf("plan %s: monthly = %s, want %s", tc.plan, got, tc.monthly)
		}
	}
}

func TestScheduleSumsToPriceExactly(t *testing.T) {
	// Prices chosen so the permille division truncates; the final installment
	// must absorb the remainder.
	prices := []*big.Int{
		eth("34"),
		eth("23"),
		big.NewInt(1_000_000_000_000_000_007),
		big.NewInt(999),
		big.NewInt(1),
	}
	plans := []InstallmentPlan{PlanThreeMonths, PlanSixMonths, PlanNineMonths}
	for _, price := range prices {
		for _, plan := range plans {
			total := plan.TotalInstallments()
			sum := big.NewInt(0)
			for n := uint8(1); n <= total; n++ {
				amt := InstallmentAmount(plan, price, n)
				if amt == nil {
					t.Fatalf("plan %s price %s: nil amount for installment %d", plan, price, n)
				}
				if amt.Sign() < 0 {
					t.Fatalf("plan %s price %s: negative installment %d: %s", plan, price, n, amt)
				}
				sum.Add(sum, amt)
			}
			if sum.Cmp(price) != 0 {
				t.Fatalf("plan %s price %s: schedule sums to %s", plan, price, sum)
			}
		}
	}
}

func TestInstallmentAmountBounds(t *testing.T) {
	price := eth("10")
	if InstallmentAmount(PlanThreeMonths, price, 0) != nil {
		t.Fatalf("installment 0 should be nil")
	}
	if InstallmentAmount(PlanThreeMonths, price, 4) != nil {
		t.Fatalf("installment beyond plan should be nil")
	}
	if InstallmentAmount(PlanNone, price, 1) != nil {
		t.Fatalf("plan none has no schedule")
	}
}

func TestScheduleAmountRange(t *testing.T) {
	price := eth("34")
	plan := PlanSixMonths
	// Claiming installments 1..3 in one withdrawal.
	want := new(big.Int).Add(DownPayment(plan, price), new(big.Int).Mul(MonthlyInstallment(plan, price), big.NewInt(2)))
	if got := ScheduleAmount(plan, price, 0, 3); got.Cmp(want) != 0 {
		t.Fatalf("claim 1..3 = %s, want %s", got, want)
	}
	// Claiming everything equals the full price.
	if got := ScheduleAmount(plan, price, 0, 6); got.Cmp(price) != 0 {
		t.Fatalf("claim 1..6 = %s, want %s", got, price)
	}
	if got := ScheduleAmount(plan, price, 4, 4); got.Sign() != 0 {
		t.Fatalf("empty claim range = %s, want 0", got)
	}
}
