package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	LedgersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_ledgers_created_total",
		Help: "Ledger rows opened for paid order items",
	})

	LedgersRetired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_ledgers_retired_total",
		Help: "Ledger rows made permanently ineligible",
	}, []string{"reason"})

	SweepPromoted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_sweep_promoted_total",
		Help: "Ledger rows promoted to eligible by the sweep",
	})

	SweepRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_sweep_runs_total",
		Help: "Eligibility sweep runs by outcome",
	}, []string{"outcome"})

	SettledAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_settled_net_amount_total",
		Help: "Net amount recognized as settled",
	})

	Payouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_payouts_total",
		Help: "Payout executions by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(LedgersCreated)
	prometheus.MustRegister(LedgersRetired)
	prometheus.MustRegister(SweepPromoted)
	prometheus.MustRegister(SweepRuns)
	prometheus.MustRegister(SettledAmount)
	prometheus.MustRegister(Payouts)
}
