package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	backendStartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ollamachat",
			Subsystem: "backend",
			Name:      "starts_total",
			Help:      "Backend start attempts by result (launched, running, error, exited)",
		},
		[]string{"result"},
	)

	backendStopsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ollamachat",
			Subsystem: "backend",
			Name:      "stops_total",
			Help:      "Backend stop attempts by result (stopped, killed, noop, error)",
		},
		[]string{"result"},
	)

	relayStreamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ollamachat",
			Subsystem: "relay",
			Name:      "streams_total",
			Help:      "Finished chat streams by outcome",
		},
		[]string{"outcome"},
	)

	relayChunksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ollamachat",
		Subsystem: "relay",
		Name:      "chunks_total",
		Help:      "Response chunks relayed to callers",
	})

	relayMalformedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ollamachat",
		Subsystem: "relay",
		Name:      "malformed_lines_total",
		Help:      "Backend stream lines skipped because they were not valid JSON",
	})

	relayAutostartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ollamachat",
		Subsystem: "relay",
		Name:      "autostarts_total",
		Help:      "Chat requests that found the backend down and tried to start it",
	})
)

// Stream outcomes.
const (
	outcomeCompleted   = "completed"
	outcomeErrored     = "errored"
	outcomeUnavailable = "unavailable"
	outcomeCanceled    = "canceled"
)

func init() {
	prometheus.MustRegister(backendStartsTotal, backendStopsTotal, relayStreamsTotal,
		relayChunksTotal, relayMalformedTotal, relayAutostartsTotal)
}
