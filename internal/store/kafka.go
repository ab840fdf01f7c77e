package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"

	"github.com/nexgen-logistics/cost-intelligence/internal/config"
	"github.com/nexgen-logistics/cost-intelligence/internal/models"
)

// KafkaSource drains entity records from Kafka topics. Each entity table
// lives on its own topic (<prefix>.<entity>) carrying one JSON record per
// message. The drain is bounded: every partition is read from the oldest
// offset up to the high-water mark captured at session start, then the
// source disconnects. There is no ongoing consumption.
type KafkaSource struct {
	cfg config.KafkaConfig
	log *zap.Logger
}

// NewKafkaSource returns a Source over the configured brokers.
func NewKafkaSource(cfg config.KafkaConfig, log *zap.Logger) *KafkaSource {
	return &KafkaSource{cfg: cfg, log: log}
}

// Load drains all entity topics into a Dataset snapshot. A missing topic
// yields an empty table and a warning, except orders which is required.
func (s *KafkaSource) Load(ctx context.Context) (models.Dataset, []models.Warning, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	client, err := sarama.NewClient(s.cfg.Brokers, saramaConfig)
	if err != nil {
		return models.Dataset{}, nil, fmt.Errorf("connect kafka: %w", err)
	}
	defer client.Close()

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		return models.Dataset{}, nil, fmt.Errorf("create consumer: %w", err)
	}
	defer consumer.Close()

	if s.cfg.DrainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DrainTimeout)
		defer cancel()
	}

	var (
		ds    models.Dataset
		warns []models.Warning
	)

	entities := []struct {
		entity   string
		required bool
		decode   func(value []byte) error
	}{
		{EntityOrders, true, decodeJSONInto(&ds.Orders)},
		{EntityDeliveries, false, decodeJSONInto(&ds.Deliveries)},
		{EntityRoutes, false, decodeJSONInto(&ds.Routes)},
		{EntityVehicles, false, decodeJSONInto(&ds.Vehicles)},
		{EntityCosts, false, decodeJSONInto(&ds.CostItems)},
		{EntityInventory, false, decodeJSONInto(&ds.Inventory)},
		{EntityFeedback, false, decodeJSONInto(&ds.Feedback)},
	}

	for _, e := range entities {
		topic := s.cfg.TopicPrefix + "." + e.entity
		n, err := s.drainTopic(ctx, client, consumer, topic, e.entity, e.decode, &warns)
		if err != nil {
			if e.required {
				return ds, nil, fmt.Errorf("drain %s: %w", topic, err)
			}
			warns = append(warns, models.Warning{
				Entity: e.entity,
				Reason: fmt.Sprintf("topic %s unavailable, table loaded empty", topic),
			})
			s.log.Warn("entity topic unavailable",
				zap.String("topic", topic), zap.Error(err))
			continue
		}
		s.log.Info("entity topic drained",
			zap.String("topic", topic), zap.Int("records", n))
	}

	return ds, warns, nil
}

// drainTopic reads every partition of topic up to its high-water mark.
func (s *KafkaSource) drainTopic(
	ctx context.Context,
	client sarama.Client,
	consumer sarama.Consumer,
	topic, entity string,
	decode func([]byte) error,
	warns *[]models.Warning,
) (int, error) {
	partitions, err := consumer.Partitions(topic)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, partition := range partitions {
		oldest, err := client.GetOffset(topic, partition, sarama.OffsetOldest)
		if err != nil {
			return total, err
		}
		newest, err := client.GetOffset(topic, partition, sarama.OffsetNewest)
		if err != nil {
			return total, err
		}
		if newest <= oldest {
			continue // empty partition
		}

		pc, err := consumer.ConsumePartition(topic, partition, oldest)
		if err != nil {
			return total, err
		}

		n, err := drainPartition(ctx, pc, newest, entity, decode, warns, s.log)
		pc.Close()
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func drainPartition(
	ctx context.Context,
	pc sarama.PartitionConsumer,
	highWater int64,
	entity string,
	decode func([]byte) error,
	warns *[]models.Warning,
	log *zap.Logger,
) (int, error) {
	n := 0
	for {
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case err := <-pc.Errors():
			return n, err
		case msg := <-pc.Messages():
			if err := decode(msg.Value); err != nil {
				*warns = append(*warns, models.Warning{
					Entity: entity,
					Key:    fmt.Sprintf("offset %d", msg.Offset),
					Reason: fmt.Sprintf("undecodable message: %v", err),
				})
				log.Warn("undecodable message",
					zap.String("entity", entity),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			} else {
				n++
			}
			if msg.Offset >= highWater-1 {
				return n, nil
			}
		}
	}
}

// decodeJSONInto appends one decoded record per message to dst.
func decodeJSONInto[T any](dst *[]T) func([]byte) error {
	return func(value []byte) error {
		var rec T
		if err := json.Unmarshal(value, &rec); err != nil {
			return err
		}
		*dst = append(*dst, rec)
		return nil
	}
}
