package kafka

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

var indexAggregate = Aggregate{Type: "index", ID: "my_index"}

type reportData struct {
	Inserted int `json:"inserted"`
}

func TestNewEvent_Fields(t *testing.T) {
	event, err := NewEvent("index.reconciled", indexAggregate, "termsearch", reportData{Inserted: 3})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "index.reconciled", event.EventType)
	assert.Equal(t, "my_index", event.AggregateID)
	assert.Equal(t, "index", event.AggregateType)
	assert.Equal(t, "termsearch", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)
	assert.JSONEq(t, `{"inserted":3}`, string(event.Data))
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("index.reconciled", indexAggregate, "termsearch", make(chan int))
	require.Error(t, err)
}

func TestEvent_MessageRoundTrip(t *testing.T) {
	original, err := NewEvent("index.reconciled", indexAggregate, "termsearch", reportData{Inserted: 7})
	require.NoError(t, err)
	original.WithCorrelationID("corr-1").WithMetadata("trigger", "startup")

	msg, err := original.Message("termsearch.index.reconciled")
	require.NoError(t, err)

	assert.Equal(t, "termsearch.index.reconciled", msg.Topic)
	assert.Equal(t, []byte("my_index"), msg.Key)
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "index.reconciled", headers[HeaderEventType])
	assert.Equal(t, "termsearch", headers[HeaderSource])
	assert.Equal(t, "corr-1", headers[HeaderCorrelationID])

	restored, err := FromMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, "corr-1", restored.CorrelationID)
	assert.Equal(t, "startup", restored.Metadata["trigger"])

	var data reportData
	require.NoError(t, restored.UnmarshalData(&data))
	assert.Equal(t, 7, data.Inserted)
}

func TestEvent_MessageWithoutCorrelation(t *testing.T) {
	event, err := NewEvent("index.reconciled", indexAggregate, "termsearch", reportData{})
	require.NoError(t, err)

	msg, err := event.Message("t")
	require.NoError(t, err)
	assert.Len(t, msg.Headers, 2)
	assert.Nil(t, event.Metadata)
}

func TestFromMessage_Invalid(t *testing.T) {
	_, err := FromMessage(kafka.Message{Topic: "t", Value: []byte("{not json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from t")
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, []string{"localhost:9092"}, discardLogger())
	event, err := NewEvent("index.reconciled", indexAggregate, "termsearch", reportData{Inserted: 1})
	require.NoError(t, err)

	before := counterValue(t, producerMessagesPublished.WithLabelValues("publish-ok"))
	require.NoError(t, p.Publish(context.Background(), "publish-ok", event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "publish-ok", w.msgs[0].Topic)
	assert.Equal(t, before+1, counterValue(t, producerMessagesPublished.WithLabelValues("publish-ok")))
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, nil, discardLogger())
	event, err := NewEvent("index.reconciled", indexAggregate, "termsearch", reportData{})
	require.NoError(t, err)

	err = p.Publish(context.Background(), "publish-fail", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish-fail")
	assert.Equal(t, float64(1), counterValue(t, producerPublishErrors.WithLabelValues("publish-fail")))
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, discardLogger())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"a:9092"})
	assert.Equal(t, []string{"a:9092"}, cfg.Brokers)
	assert.Equal(t, 1, cfg.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
}
