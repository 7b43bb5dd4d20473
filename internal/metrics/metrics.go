package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	OnlineConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "social_ws_online_conns",
		Help: "Current websocket connections on this instance.",
	})

	FanoutPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_fanout_published_total",
		Help: "Real-time events published, by event type.",
	}, []string{"event_type"})
	FanoutFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_fanout_failed_total",
		Help: "Real-time events that could not be published, by event type.",
	}, []string{"event_type"})

	WSPushOK = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "social_ws_push_ok_total",
		Help: "Total ws frames queued successfully.",
	})
	WSPushBackpressure = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "social_ws_backpressure_total",
		Help: "Total frames dropped because a client send buffer was full.",
	})

	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_messages_sent_total",
		Help: "Messages persisted, by route (routed or unrouted).",
	}, []string{"route"})
	RequestTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_message_request_transitions_total",
		Help: "Message request status transitions, by resulting status.",
	}, []string{"status"})
	InviteJoins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_invite_joins_total",
		Help: "Invite link join attempts, by outcome.",
	}, []string{"outcome"})
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			OnlineConns,
			FanoutPublished, FanoutFailed,
			WSPushOK, WSPushBackpressure,
			MessagesSent, RequestTransitions, InviteJoins,
		)
	})
}
