// Package eventbus republishes dispatched sync actions onto a Kafka topic
// for downstream consumers outside the process (indexers, alerting), using
// the teacher's Shopify/sarama dependency. This is pure fan-out: the CSM
// worker's own dispatch to the engine (§4.E) does not depend on the bus
// being reachable.
package eventbus

import (
	"encoding/json"

	"github.com/Shopify/sarama"

	"github.com/btcrollup/csmnode/csm"
	"github.com/btcrollup/csmnode/xlog"
)

var busLogger = xlog.NewModuleLogger(xlog.EventBus)

// Publisher sends a JSON-encoded envelope per dispatched SyncAction to a
// Kafka topic, keyed by block id so all actions about one block land on
// the same partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher dials brokers with a synchronous producer tuned for
// at-least-once delivery (WaitForAll acks, up to 5 retries); sarama's
// idempotent producer is not enabled.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Publisher{producer: producer, topic: topic}, nil
}

type actionEnvelope struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

// Publish sends one sync action. Failures are logged, never fatal: the
// bus is a downstream mirror, not part of the CSM's durability contract.
func (p *Publisher) Publish(index uint64, action csm.SyncAction) {
	env := actionEnvelope{Payload: action}
	var key string
	switch a := action.(type) {
	case csm.TryCheckBlock:
		env.Kind, key = "TryCheckBlock", a.BlockID.String()
	case csm.ExtendTip:
		env.Kind, key = "ExtendTip", a.BlockID.String()
	case csm.RevertTip:
		env.Kind, key = "RevertTip", a.BlockID.String()
	case csm.UpdateTip:
		env.Kind, key = "UpdateTip", a.BlockID.String()
	default:
		env.Kind = "Unknown"
	}

	data, err := json.Marshal(env)
	if err != nil {
		busLogger.Error("failed to encode action for bus", "err", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		busLogger.Warn("failed to publish action to bus", "index", index, "err", err)
	}
}

func (p *Publisher) Close() error { return p.producer.Close() }
