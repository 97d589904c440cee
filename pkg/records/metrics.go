package records

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "securityapp_record_fetches_total",
		Help: "The total number of record view fetches",
	}, []string{"ordering"})
	recordFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "securityapp_record_fetch_failures_total",
		Help: "The total number of record view fetches that returned an empty view because of an error",
	}, []string{"ordering"})
	ambiguousAccounts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "securityapp_ambiguous_accounts_total",
		Help: "Account lookups that matched more than one account document",
	})
	recordsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "securityapp_records_inserted_total",
		Help: "The total number of inserted login records",
	})
)
