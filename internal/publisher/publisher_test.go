package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradequest-api/internal/config"
	"tradequest-api/pkg/market"
)

type captureWriter struct {
	msgs   []kafkaGo.Message
	err    error
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewWithoutBrokersIsNop(t *testing.T) {
	p := New(config.KafkaConf{Topic: "tradequest.quotes"})
	require.IsType(t, Nop{}, p)
	require.NoError(t, p.Publish(context.Background(), QuoteEvent{Symbol: "BTC"}))
	require.NoError(t, p.Close())

	require.IsType(t, &Kafka{}, New(config.KafkaConf{Brokers: []string{"localhost:9092"}, Topic: "t"}))
}

func TestKafkaPublishEncodesEvents(t *testing.T) {
	w := &captureWriter{}
	k := &Kafka{topic: "tradequest.quotes", writer: w}
	fetched := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	q := &market.Quote{
		Symbol:           "btc",
		Class:            market.Crypto,
		Currency:         "EUR",
		Price:            50000,
		ChangePercent24h: 2.04,
		Sentiment:        market.SentimentBullish,
		ConfidenceScore:  60.2,
		Provider:         "coingecko",
		FetchedAt:        fetched,
	}

	require.NoError(t, k.Publish(context.Background(), NewQuoteEvent(q)))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "crypto:BTC", string(msg.Key))
	assert.True(t, fetched.Equal(msg.Time))

	event, err := DecodeQuoteEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, event.Price)
	assert.Equal(t, "bullish", event.Sentiment)
	assert.Nil(t, event.Volume24h)

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublishWrapsWriterErrors(t *testing.T) {
	k := &Kafka{topic: "t", writer: &captureWriter{err: errors.New("broker down")}}
	err := k.Publish(context.Background(), QuoteEvent{Symbol: "AAPL", Class: "stocks", Price: 1})
	require.ErrorContains(t, err, "broker down")

	require.NoError(t, k.Publish(context.Background()))
}

func TestDecodeQuoteEventRejectsIncomplete(t *testing.T) {
	_, err := DecodeQuoteEvent(kafkaGo.Message{Value: []byte(`{"symbol":"AAPL","price":0}`)})
	require.Error(t, err)
	_, err = DecodeQuoteEvent(kafkaGo.Message{Value: []byte(`not json`)})
	require.Error(t, err)
}
