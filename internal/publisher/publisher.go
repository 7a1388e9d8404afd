// Package publisher fans refreshed quotes out to Kafka.
package publisher

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/core/logx"

	"tradequest-api/internal/config"
	"tradequest-api/pkg/market"
)

// QuoteEvent is the message value published for each refreshed quote.
type QuoteEvent struct {
	Symbol           string   `json:"symbol"`
	Class            string   `json:"class"`
	Currency         string   `json:"currency"`
	Price            float64  `json:"price"`
	ChangePercent24h float64  `json:"changePercent24h"`
	Volume24h        *float64 `json:"volume24h,omitempty"`
	Sentiment        string   `json:"sentiment"`
	ConfidenceScore  float64  `json:"confidenceScore"`
	Provider         string   `json:"provider"`
	FetchedAt        int64    `json:"fetchedAt"`
	RSI              *float64 `json:"rsi,omitempty"`
	Trend            string   `json:"trend,omitempty"`
}

// NewQuoteEvent flattens q for publishing.
func NewQuoteEvent(q *market.Quote) QuoteEvent {
	return QuoteEvent{
		Symbol:           q.Symbol,
		Class:            string(q.Class),
		Currency:         q.Currency,
		Price:            q.Price,
		ChangePercent24h: q.ChangePercent24h,
		Volume24h:        q.Volume24h,
		Sentiment:        string(q.Sentiment),
		ConfidenceScore:  q.ConfidenceScore,
		Provider:         q.Provider,
		FetchedAt:        q.FetchedAt.UnixMilli(),
	}
}

// Key partitions events per instrument.
func (e QuoteEvent) Key() string {
	return e.Class + ":" + strings.ToUpper(e.Symbol)
}

// Publisher delivers quote events.
type Publisher interface {
	Publish(ctx context.Context, events ...QuoteEvent) error
	Close() error
}

// New returns a Kafka publisher when brokers are configured, otherwise a no-op.
func New(cfg config.KafkaConf) Publisher {
	if len(cfg.Brokers) == 0 {
		return Nop{}
	}
	return NewKafka(cfg)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, ...QuoteEvent) error { return nil }
func (Nop) Close() error                                 { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

// Kafka writes JSON encoded events to one topic.
type Kafka struct {
	topic  string
	writer messageWriter
}

// NewKafka builds a synchronous writer balanced by least bytes.
func NewKafka(cfg config.KafkaConf) *Kafka {
	return &Kafka{
		topic: cfg.Topic,
		writer: &kafkaGo.Writer{
			Addr:         kafkaGo.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafkaGo.LeastBytes{},
			RequiredAcks: kafkaGo.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Publish implements Publisher.
func (k *Kafka) Publish(ctx context.Context, events ...QuoteEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkaGo.Message, 0, len(events))
	for _, e := range events {
		value, err := jsonx.Marshal(e)
		if err != nil {
			return fmt.Errorf("publisher: encode %s: %w", e.Key(), err)
		}
		msgs = append(msgs, kafkaGo.Message{
			Key:   []byte(e.Key()),
			Value: value,
			Time:  time.UnixMilli(e.FetchedAt),
		})
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publisher: write %d messages to %s: %w", len(msgs), k.topic, err)
	}
	logx.WithContext(ctx).Infof("publisher: wrote %d quote events to %s", len(msgs), k.topic)
	return nil
}

// Close flushes pending writes.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

// DecodeQuoteEvent parses a message written by Kafka.Publish.
func DecodeQuoteEvent(m kafkaGo.Message) (*QuoteEvent, error) {
	var e QuoteEvent
	if err := jsonx.Unmarshal(m.Value, &e); err != nil {
		return nil, fmt.Errorf("publisher: decode message: %w", err)
	}
	if e.Symbol == "" || e.Price <= 0 {
		return nil, fmt.Errorf("publisher: incomplete event key=%s", m.Key)
	}
	return &e, nil
}

// EnsureTopic creates the topic on the cluster controller when missing.
func EnsureTopic(ctx context.Context, cfg config.KafkaConf) error {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	var dialer kafkaGo.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("publisher: dial %s: %w", cfg.Brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("publisher: find controller: %w", err)
	}
	ctrl, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("publisher: dial controller: %w", err)
	}
	defer ctrl.Close()

	if err := ctrl.CreateTopics(kafkaGo.TopicConfig{
		Topic:             cfg.Topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}); err != nil {
		return fmt.Errorf("publisher: create topic %s: %w", cfg.Topic, err)
	}
	return nil
}
