package models

import "github.com/shopspring/decimal"

// Stats is the dashboard rollup of the ledger. All value totals are
// budgetAmount - discount sums.
type Stats struct {
	TotalEstimates      int             `json:"totalEstimates"`
	ApprovedCount       int             `json:"approvedCount"`
	RejectedCount       int             `json:"rejectedCount"`
	PendingCount        int             `json:"pendingCount"`
	TotalValueApproved  decimal.Decimal `json:"totalValueApproved"`
	TotalValuePending   decimal.Decimal `json:"totalValuePending"`
	TotalValueAll       decimal.Decimal `json:"totalValueAll"`
	InvoicePendingCount int             `json:"invoicePendingCount"`
}

// ComputeStats partitions the ledger by status and sums net amounts. Pure and
// read-only; an empty ledger yields all-zero aggregates. Records violating
// discount <= budgetAmount just contribute a negative net, they never fail.
func ComputeStats(budgets []Budget) Stats {
	stats := Stats{
		TotalValueApproved: decimal.Zero,
		TotalValuePending:  decimal.Zero,
		TotalValueAll:      decimal.Zero,
	}

	for _, b := range budgets {
		stats.TotalEstimates++
		net := b.NetAmount()
		stats.TotalValueAll = stats.TotalValueAll.Add(net)

		switch b.Status {
		case BudgetStatusApproved:
			stats.ApprovedCount++
			stats.TotalValueApproved = stats.TotalValueApproved.Add(net)
			if !b.InvoiceSent {
				stats.InvoicePendingCount++
			}
		case BudgetStatusNotApproved:
			stats.RejectedCount++
		default:
			stats.PendingCount++
		}
	}

	return stats
}
