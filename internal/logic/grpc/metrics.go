package grpc

import (
	"ix-decoder-sol/internal/logic/core"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	blocksProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ix_decoder",
		Name:      "blocks_processed_total",
		Help:      "Blocks received from the gRPC stream and decoded",
	})
	instructionsDecoded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ix_decoder",
		Name:      "instructions_total",
		Help:      "Decoded instructions by result kind and program family",
	}, []string{"kind", "family"})
	kafkaSendFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ix_decoder",
		Name:      "kafka_send_failures_total",
		Help:      "Records that failed to reach Kafka",
	})
	missingSlots = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ix_decoder",
		Name:      "missing_slots_total",
		Help:      "Slots confirmed by getBlocks but never processed",
	})
)

func init() {
	prometheus.MustRegister(blocksProcessed, instructionsDecoded, kafkaSendFailures, missingSlots)
}

// observeDecoded 按 kind / family 统计一个区块的解码结果；未注册 Program 的 family 记为 "unknown"
func observeDecoded(txs []*core.DecodedTx) {
	blocksProcessed.Inc()
	for _, tx := range txs {
		for i := range tx.Instructions {
			res := &tx.Instructions[i].Result
			family := res.Family
			if family == "" {
				family = "unknown"
			}
			instructionsDecoded.WithLabelValues(res.Kind.String(), family).Inc()
		}
	}
}
