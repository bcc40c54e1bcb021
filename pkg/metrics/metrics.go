// Package metrics registers the widget's Prometheus collectors. The host
// binary exposes them on /metrics; embedders can scrape or ignore them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tpchat_messages_sent_total",
		Help: "Messages sent by the visitor, by delivery path.",
	}, []string{"via"}) // socket|rest

	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tpchat_messages_received_total",
		Help: "Live messages received over the conversation socket.",
	})

	SocketReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tpchat_socket_reconnects_total",
		Help: "Reconnect attempts, by socket kind.",
	}, []string{"socket"}) // conversation|notification

	TransportRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tpchat_transport_retries_total",
		Help: "Retried transport requests.",
	})

	UnreadConversations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tpchat_unread_conversations",
		Help: "Conversations currently marked unread.",
	})

	StoreWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tpchat_store_writes_total",
		Help: "Durable store writes, by outcome.",
	}, []string{"outcome"}) // ok|error
)
