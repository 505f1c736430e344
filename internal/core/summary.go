package core

// BalanceSummary is the ledger overview for one owner: overall balance plus
// the income/expense totals of a specific month.
type BalanceSummary struct {
	Balance      Money // all-time income minus expense
	Year         int
	Month        int // 1-12
	MonthIncome  Money
	MonthExpense Money
}
