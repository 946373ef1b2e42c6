// Package metrics defines and registers all custom Prometheus metrics for the
// chat API. It is the single source of truth for metric names, labels, and
// help strings. Metrics register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "otpchat"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// RegistrationsTotal counts register calls.
// Label:
//   - result: "ok", "conflict", "invalid" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration (and resend) requests, by result.",
	},
	[]string{"result"},
)

// OTPVerificationsTotal counts OTP verification attempts.
// Label:
//   - result: "verified", "rejected", "not_found" or "error"
var OTPVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_verifications_total",
		Help:      "Total number of OTP verification attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok", "unverified", "not_found", "invalid" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// GateRejectionsTotal counts requests turned away by the auth gate.
// Label:
//   - reason: "missing_token", "invalid_token", "unverified" or "error"
var GateRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_gate_rejections_total",
		Help:      "Total number of requests rejected by the auth gate.",
	},
	[]string{"reason"},
)

// ── OTP delivery metrics ──────────────────────────────────────────────────────

// OTPDeliveriesTotal counts codes handed to the downstream sender.
// Label:
//   - status: "sent" or "failed"
var OTPDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_deliveries_total",
		Help:      "Total number of OTP deliveries attempted, by status.",
	},
	[]string{"status"},
)

// OTPDeliveryQueueDepth tracks pending deliveries per dispatcher worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var OTPDeliveryQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "otp_delivery_queue_depth",
		Help:      "Current number of OTP deliveries pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Message metrics ───────────────────────────────────────────────────────────

// MessagesSentTotal counts stored user messages.
var MessagesSentTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Total number of chat messages stored.",
	},
)
