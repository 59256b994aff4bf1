package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RefundOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_requests_total",
		Help: "Refund requests by outcome",
	}, []string{"outcome"})

	RefundedAmount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_amount_total",
		Help: "Amount returned by processed refunds",
	}, []string{"leg"})

	PostCommitFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_post_commit_failures_total",
		Help: "Best-effort follow-up tasks that failed after a processed refund",
	}, []string{"task"})

	ItemTransitionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "refund_item_transition_failures_total",
		Help: "Order items that could not be moved to REFUNDED",
	})

	ManualReconciliation = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_manual_reconciliation_total",
		Help: "Refunds where money moved but the refund could not complete",
	}, []string{"cause"})

	GatewayParseFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "refund_gateway_parse_failures_total",
		Help: "Gateway responses that could not be parsed",
	})
)

func init() {
	prometheus.MustRegister(RefundOutcomes)
	prometheus.MustRegister(RefundedAmount)
	prometheus.MustRegister(PostCommitFailures)
	prometheus.MustRegister(ItemTransitionFailures)
	prometheus.MustRegister(ManualReconciliation)
	prometheus.MustRegister(GatewayParseFailures)
}
