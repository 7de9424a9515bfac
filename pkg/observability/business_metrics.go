package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway attempt metrics, one sample per HTTP exchange in a failover loop
	gatewayAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymentsense_gateway_attempts_total",
		Help: "Total gateway attempts by message family, entry point and transport result",
	}, []string{
		"family",         // GetGatewayEntryPoints, CardDetailsTransaction, ...
		"endpoint",       // gw1.paymentsensegateway.com
		"transport_code", // ok, couldnt_connect, operation_timed_out, aborted, ...
	})

	gatewayAttemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "paymentsense_gateway_attempt_duration_seconds",
		Help: "Duration of a single gateway attempt",
		// Buckets: 100ms up to the 12s per-attempt ceiling
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 9, 12},
	}, []string{
		"family",
		"endpoint",
	})

	// Transaction outcome metrics, one sample per orchestration call
	gatewayOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymentsense_gateway_outcomes_total",
		Help: "Total gateway transactions by family and outcome",
	}, []string{
		"family",
		"outcome", // success, failed, incomplete, unsupported, transport_error, aborted
	})

	// Hosted form callbacks
	callbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymentsense_callbacks_total",
		Help: "Total hosted payment form callbacks",
	}, []string{
		"delivery",      // POST, SERVER
		"request_type",  // notification, customer_redirect
		"authenticated", // true, false
		"status",        // success, failed, duplicated, unsupported
	})

	// Refunds
	refundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymentsense_refunds_total",
		Help: "Total refund requests",
	}, []string{
		"status", // success, declined, error
	})

	refundAmountMinorUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymentsense_refund_amount_minor_units_total",
		Help: "Total refunded amount in minor currency units",
	}, []string{
		"currency",
	})

	// Connectivity as seen by the last probe
	gatewayConnectivity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paymentsense_gateway_connectivity",
		Help: "1 when the last probe reached an entry point, 0 otherwise",
	})

	systemTimeSkewSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paymentsense_system_time_skew_seconds",
		Help: "Local minus gateway time at the last probe",
	})
)

// RecordGatewayAttempt records one HTTP exchange with an entry point
func RecordGatewayAttempt(family, endpoint, transportCode string, duration time.Duration) {
	gatewayAttemptsTotal.WithLabelValues(family, endpoint, transportCode).Inc()
	gatewayAttemptDuration.WithLabelValues(family, endpoint).Observe(duration.Seconds())
}

// RecordGatewayOutcome records the classified outcome of a transaction
func RecordGatewayOutcome(family, outcome string) {
	gatewayOutcomesTotal.WithLabelValues(family, outcome).Inc()
}

// RecordCallback records a hosted form callback
func RecordCallback(delivery, requestType string, authenticated bool, status string) {
	auth := "false"
	if authenticated {
		auth = "true"
	}
	callbacksTotal.WithLabelValues(delivery, requestType, auth, status).Inc()
}

// RecordRefund records a refund request. Only successful refunds count toward the amount.
func RecordRefund(status string, amountMinorUnits int64, currency string) {
	refundsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		refundAmountMinorUnits.WithLabelValues(currency).Add(float64(amountMinorUnits))
	}
}

// RecordProbe records the connectivity and clock skew found by a probe
func RecordProbe(connectivity bool, skewSeconds int64, skewKnown bool) {
	if connectivity {
		gatewayConnectivity.Set(1)
	} else {
		gatewayConnectivity.Set(0)
	}
	if skewKnown {
		systemTimeSkewSeconds.Set(float64(skewSeconds))
	}
}
