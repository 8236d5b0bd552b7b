package market

import "math/big"

// Plan percentages expressed in parts-per-thousand of the bid price. Each
// plan's down payment plus its monthly payments sums to exactly 1000.
const (
	threeMonthsDownPaymentPermille = 340
	threeMonthsMonthlyPermille     = 330
	sixMonthsDownPaymentPermille   = 175
	sixMonthsMonthlyPermille       = 165
	nineMonthsDownPaymentPermille  = 120
	nineMonthsMonthlyPermille      = 110
)

var permille = big.NewInt(1000)

func permilleOf(amount *big.Int, parts int64) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, big.NewInt(parts))
	return out.Div(out, permille)
}

// DownPayment returns the funds a bidder must attach when placing a bid of the
// given price under the given plan. PlanNone requires the full price.
func DownPayment(plan InstallmentPlan, price *big.Int) *big.Int {
	if price == nil {
		return big.NewInt(0)
	}
	switch plan {
	case PlanThreeMonths:
		return permilleOf(price, threeMonthsDownPaymentPermille)
	case PlanSixMonths:
		return permilleOf(price, sixMonthsDownPaymentPermille)
	case PlanNineMonths:
		return permilleOf(price, nineMonthsDownPaymentPermille)
	default:
		return new(big.Int).Set(price)
	}
}

// MonthlyInstallment returns the nominal monthly payment for the plan. The
// final installment of a schedule may differ by the rounding remainder; use
// InstallmentAmount for exact per-installment values.
func MonthlyInstallment(plan InstallmentPlan, price *big.Int) *big.Int {
	switch plan {
	case PlanThreeMonths:
		return permilleOf(price, threeMonthsMonthlyPermille)
	case PlanSixMonths:
		return permilleOf(price, sixMonthsMonthlyPermille)
	case PlanNineMonths:
		return permilleOf(price, nineMonthsMonthlyPermille)
	default:
		return big.NewInt(0)
	}
}

// InstallmentAmount returns the exact amount owed for installment n (1-based,
// the down payment is installment #1). The final installment absorbs the
// integer-division remainder so the full schedule sums to exactly price.
// Returns nil when n is outside the plan's schedule.
func InstallmentAmount(plan InstallmentPlan, price *big.Int, n uint8) *big.Int {
	total := plan.TotalInstallments()
	if n == 0 || n > total {
		return nil
	}
	if n == 1 {
		return DownPayment(plan, price)
	}
	if n < total {
		return MonthlyInstallment(plan, price)
	}
	// Final installment: remainder after the down payment and all full months.
	owed := new(big.Int).Set(price)
	owed.Sub(owed, DownPayment(plan, price))
	monthly := MonthlyInstallment(plan, price)
	months := new(big.Int).Mul(monthly, big.NewInt(int64(total)-2))
	return owed.Sub(owed, months)
}

// ScheduleAmount returns the cumulative amount owed for installments from
// (claimed, paid], i.e. the funds a seller withdraws after `paid` installments
// when `claimed` have already been taken.
func ScheduleAmount(plan InstallmentPlan, price *big.Int, claimed, paid uint8) *big.Int {
	sum := big.NewInt(0)
	for n := claimed + 1; n <= paid; n++ {
		amt := InstallmentAmount(plan, price, n)
		if amt == nil {
			break
		}
		sum.Add(sum, amt)
	}
	return sum
}
