package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.mu.Lock()
		if len(r.queue) > 0 {
			m := r.queue[0]
			r.queue = r.queue[1:]
			r.mu.Unlock()
			return m, nil
		}
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestProducer_PublishBatchEncodesValues(t *testing.T) {
	w := &fakeWriter{}
	reg := prometheus.NewRegistry()
	p, err := NewProducer(WithWriter(w), WithRegisterer(reg))
	require.NoError(t, err)

	err = p.PublishBatch(context.Background(), "alerts", []Message{
		{Key: []byte("GDP"), Value: map[string]int{"alert_id": 1}},
		{Key: []byte("CPI"), Value: "raw"},
	})
	require.NoError(t, err)

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "alerts", w.msgs[0].Topic)
	assert.JSONEq(t, `{"alert_id":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "raw", string(w.msgs[1].Value))
	assert.Equal(t, float64(2), testutil.ToFloat64(p.metrics.msgs.WithLabelValues("alerts", "gzip", "ok")))
}

func TestProducer_WriteErrorIsWrapped(t *testing.T) {
	boom := errors.New("broker down")
	p, err := NewProducer(WithWriter(&fakeWriter{err: boom}), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)

	err = p.Publish(context.Background(), "alerts", nil, "x")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, float64(1), testutil.ToFloat64(p.metrics.msgs.WithLabelValues("alerts", "gzip", "error")))
}

func TestProducer_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewProducer(WithWriter(&fakeWriter{}), WithRegisterer(reg))
	require.NoError(t, err)
	_, err = NewProducer(WithWriter(&fakeWriter{}), WithRegisterer(reg))
	require.NoError(t, err)
}

func TestProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(WithRegisterer(nil))
	assert.Error(t, err)
}

func TestConsumer_RetriesThenCommits(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Offset: 7, Value: []byte("a")}, {Offset: 8, Value: []byte("b")}}}
	c, err := NewConsumer("alerts", nil,
		WithConsumerReader(r),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	calls := map[string]int{}
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, func(_ context.Context, _, value []byte) error {
			mu.Lock()
			defer mu.Unlock()
			calls[string(value)]++
			if string(value) == "a" && calls["a"] < 2 {
				return errors.New("transient")
			}
			if string(value) == "b" {
				panic("bad payload")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return len(r.committedOffsets()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls["a"])
	assert.Equal(t, 3, calls["b"])
	assert.Equal(t, []int64{7, 8}, r.committedOffsets())
}

func TestBackoffWithJitter_Bounds(t *testing.T) {
	for attempt := 1; attempt < 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}
