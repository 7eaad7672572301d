package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var claimSettlements = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "claim_settlements_total",
		Help: "Claim settlement outcomes by terminal status",
	},
	[]string{"status"},
)

func init() {
	prometheus.MustRegister(claimSettlements)
}
