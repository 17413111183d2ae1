package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sisu-network/proposal-relay/types"
)

const namespace = "relay"

var (
	Campaigns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "campaigns_total",
		Help:      "Number of watch campaigns started.",
	})

	Polls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "polls_total",
		Help:      "Number of log polls delivered to the session, by result.",
	}, []string{"result"})

	Records = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_total",
		Help:      "Number of records produced, by kind.",
	}, []string{"kind"})

	QueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_length",
		Help:      "Number of events waiting for the transfer worker.",
	})

	PollingState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "polling",
		Help:      "1 while a watch campaign is running.",
	})
)

func ObservePoll(err error) {
	if err != nil {
		Polls.WithLabelValues("error").Inc()
		return
	}

	Polls.WithLabelValues("ok").Inc()
}

func ObserveRecord(record *types.LogRecord) {
	Records.WithLabelValues(string(record.Kind)).Inc()
}

func SetPolling(polling bool) {
	if polling {
		PollingState.Set(1)
	} else {
		PollingState.Set(0)
	}
}

// Handler serves the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
