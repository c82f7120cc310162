package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// ClientFactory builds a franz-go client with the given extra options.
type ClientFactory func(opts ...kgo.Opt) (*kgo.Client, error)

// KafkaTransport publishes each envelope to a topic named after its
// destination chain, keyed by message id. Receivers consume in a consumer
// group and commit a record only after the handler returned.
type KafkaTransport struct {
	producer    *kgo.Client
	newClient   ClientFactory
	topicPrefix string
	group       string
	logger      *slog.Logger
}

var _ Transport = (*KafkaTransport)(nil)

func NewKafkaTransport(producer *kgo.Client, newClient ClientFactory, topicPrefix, group string, logger *slog.Logger) (*KafkaTransport, error) {
	if producer == nil {
		return nil, fmt.Errorf("kafka producer is required")
	}
	if newClient == nil {
		return nil, fmt.Errorf("kafka client factory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaTransport{
		producer:    producer,
		newClient:   newClient,
		topicPrefix: topicPrefix,
		group:       group,
		logger:      logger,
	}, nil
}

// Topic returns the inbound topic for chain.
func (k *KafkaTransport) Topic(chain ChainID) string {
	if k.topicPrefix == "" {
		return string(chain)
	}
	return k.topicPrefix + "." + string(chain)
}

func (k *KafkaTransport) Send(ctx context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	rec := &kgo.Record{
		Topic: k.Topic(env.Destination),
		Key:   []byte(env.ID.String()),
		Value: value,
	}
	if err := k.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("bridge: produce %s: %w", env.ID, err)
	}
	return nil
}

func (k *KafkaTransport) Receive(ctx context.Context, chain ChainID, h Handler) error {
	topic := k.Topic(chain)
	client, err := k.newClient(
		kgo.ConsumerGroup(k.group+"."+string(chain)),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	for {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return ErrTransportClosed
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(t string, p int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			k.logger.ErrorContext(ctx, "bridge fetch failed", "topic", t, "partition", p, "error", err)
		})

		iter := fetches.RecordIter()
		for !iter.Done() {
			rec := iter.Next()
			env, err := Decode(rec.Value)
			if err != nil {
				k.logger.ErrorContext(ctx, "dropping undecodable bridge record",
					"topic", rec.Topic,
					"offset", rec.Offset,
					"key", string(rec.Key),
					"error", err,
				)
			} else if err := h(ctx, env); err != nil {
				return err
			}
			if err := client.CommitRecords(ctx, rec); err != nil {
				return fmt.Errorf("bridge: commit offset: %w", err)
			}
		}
	}
}
