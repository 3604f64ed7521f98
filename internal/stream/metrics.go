package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepwander_stream_frames_total",
		Help: "SSE frames written, by event type.",
	}, []string{"event"})

	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deepwander_stream_persist_failures_total",
		Help: "Chat messages dropped because the store write failed.",
	})

	streamsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepwander_streams_total",
		Help: "Workflow streams started, by mode (fresh or resume).",
	}, []string{"mode"})
)
