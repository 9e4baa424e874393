package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency        = metric.NewHistogram("1m1s")
	RecomputeLatency       = metric.NewHistogram("1m1s")
	RecvBatchSize          = metric.NewHistogram("10s1s")
	SentPacketPerSecond    = metric.NewCounter("10s1s")
	RecvPacketPerSecond    = metric.NewCounter("10s1s")
	SentBytesPerSecond     = metric.NewCounter("10s1s")
	RecvBytesPerSecond     = metric.NewCounter("10s1s")
	FloodAcceptedPerSecond = metric.NewCounter("10s1s")
	FloodDroppedPerSecond  = metric.NewCounter("10s1s")
	MalformedPerSecond     = metric.NewCounter("10s1s")
	UnknownSourcePerSecond = metric.NewCounter("10s1s")
	NoRoutePerSecond       = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("moss:RecvBatchSize", RecvBatchSize)

	expvar.Publish("moss:SentPacket/s", SentPacketPerSecond)
	expvar.Publish("moss:RecvPacket/s", RecvPacketPerSecond)
	expvar.Publish("moss:SentBytes/s", SentBytesPerSecond)
	expvar.Publish("moss:RecvBytes/s", RecvBytesPerSecond)
	expvar.Publish("moss:FloodAccepted/s", FloodAcceptedPerSecond)
	expvar.Publish("moss:FloodDropped/s", FloodDroppedPerSecond)
	expvar.Publish("moss:Malformed/s", MalformedPerSecond)
	expvar.Publish("moss:UnknownSource/s", UnknownSourcePerSecond)
	expvar.Publish("moss:NoRoute/s", NoRoutePerSecond)
	expvar.Publish("moss:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("moss:RecomputeLatency (µs)", RecomputeLatency)
}
