package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchor_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anchor_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchor_llm_requests_total",
			Help: "Total number of LLM chat requests.",
		},
		[]string{"provider", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anchor_llm_request_duration_seconds",
			Help:    "LLM chat request duration in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"provider"},
	)

	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchor_tool_calls_total",
			Help: "Total number of agent tool calls.",
		},
		[]string{"tool", "status"},
	)

	RemindersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchor_reminders_created_total",
			Help: "Reminders created, by how confidently the due time was parsed.",
		},
		[]string{"confidence"},
	)

	ParseFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchor_reminder_parse_failures_total",
			Help: "Reminder texts that could not be parsed.",
		},
		[]string{"reason"},
	)

	RemindersFiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "anchor_reminders_fired_total",
			Help: "Reminders marked fired by the scheduler.",
		},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchor_deliveries_total",
			Help: "Outbound messages to patients and caregivers.",
		},
		[]string{"channel", "status"},
	)

	EmergencyAlertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "anchor_emergency_alerts_total",
			Help: "Emergency alerts raised by patients.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		LLMRequestsTotal,
		LLMRequestDuration,
		ToolCallsTotal,
		RemindersCreatedTotal,
		ParseFailuresTotal,
		RemindersFiredTotal,
		DeliveriesTotal,
		EmergencyAlertsTotal,
	)
}

// Status maps an error to a low-cardinality label value.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
