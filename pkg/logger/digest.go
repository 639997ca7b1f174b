package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Publisher ships a digest batch. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// DigestConfig controls flushing.
type DigestConfig struct {
	Interval  time.Duration // flush period
	Threshold int           // distinct entries that force a flush
	Topic     string
	Publisher Publisher
}

// DigestEntry is one distinct warn/error event and how often it fired.
type DigestEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Digest folds repeated warn/error events into counted entries and publishes
// them periodically. A nil *Digest ignores everything.
type Digest struct {
	cfg     DigestConfig
	mu      sync.Mutex
	entries map[string]*DigestEntry
	flushes sync.WaitGroup
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewDigest starts the flush loop.
func NewDigest(cfg DigestConfig) *Digest {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 100
	}
	d := &Digest{
		cfg:     cfg,
		entries: make(map[string]*DigestEntry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Digest) add(level zerolog.Level, msg string, fields []Field) {
	if d == nil {
		return
	}
	fieldMap := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		k, v := f.GetKeyValue()
		fieldMap[k] = v
	}
	key := digestKey(level.String(), msg, fieldMap)
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[key]; ok {
		e.Count++
		e.LastSeen = now
		return
	}
	d.entries[key] = &DigestEntry{
		Level:     level.String(),
		Message:   msg,
		Fields:    fieldMap,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	if len(d.entries) >= d.cfg.Threshold {
		d.flushLocked()
	}
}

// Snapshot returns the pending entries ordered by first occurrence.
func (d *Digest) Snapshot() []DigestEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pendingLocked()
}

// Close flushes what is pending and waits for in-flight publishes.
func (d *Digest) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		close(d.stop)
		<-d.done
		d.flushes.Wait()
	})
}

func (d *Digest) loop() {
	defer close(d.done)
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.mu.Lock()
			d.flushLocked()
			d.mu.Unlock()
		case <-d.stop:
			d.mu.Lock()
			d.flushLocked()
			d.mu.Unlock()
			return
		}
	}
}

func (d *Digest) pendingLocked() []DigestEntry {
	out := make([]DigestEntry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen.Before(out[j].FirstSeen) })
	return out
}

func (d *Digest) flushLocked() {
	if len(d.entries) == 0 || d.cfg.Publisher == nil {
		return
	}
	batch := d.pendingLocked()
	d.entries = make(map[string]*DigestEntry)

	d.flushes.Add(1)
	go func() {
		defer d.flushes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.cfg.Publisher.Publish(ctx, d.cfg.Topic, nil, batch); err != nil {
			// the logger cannot log its own delivery failure
			fmt.Fprintf(os.Stderr, "log digest publish failed: %v\n", err)
		}
	}()
}

func digestKey(level, msg string, fields map[string]interface{}) string {
	b, _ := json.Marshal(struct {
		Level  string                 `json:"l"`
		Msg    string                 `json:"m"`
		Fields map[string]interface{} `json:"f"`
	}{level, msg, fields})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
