package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
)

const (
	axiomBuffer    = 1000
	axiomBatchSize = 200
)

type eventSink interface {
	Send(ev axiom.Event)
}

// axiomWriter turns zerolog JSON lines into Axiom events, dropping
// anything below min.
type axiomWriter struct {
	sink eventSink
	min  zerolog.Level
}

func (w *axiomWriter) Write(p []byte) (int, error) {
	var ev map[string]any
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = map[string]any{zerolog.MessageFieldName: string(p), zerolog.LevelFieldName: zerolog.InfoLevel.String()}
	}
	if name, ok := ev[zerolog.LevelFieldName].(string); ok {
		if lvl, err := zerolog.ParseLevel(name); err == nil && lvl < w.min {
			return len(p), nil
		}
	}
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}
	w.sink.Send(axiom.Event(ev))
	return len(p), nil
}

// ingestFunc ships one batch to a dataset.
type ingestFunc func(ctx context.Context, dataset string, events []axiom.Event) error

// axiomClient batches events and ingests them in the background.
type axiomClient struct {
	ingest  ingestFunc
	dataset string
	ch      chan axiom.Event
	dropped atomic.Int64
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func newAxiomClient(token, orgID, dataset string, flushEvery time.Duration) (*axiomClient, error) {
	if dataset == "" {
		dataset = "dev_" + serviceName
	}
	opts := []axiom.Option{axiom.SetToken(token)}
	if orgID != "" {
		opts = append(opts, axiom.SetOrganizationID(orgID))
	}
	c, err := axiom.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	ingest := func(ctx context.Context, dataset string, events []axiom.Event) error {
		_, err := c.IngestEvents(ctx, dataset, events)
		return err
	}
	return startAxiomClient(dataset, ingest, flushEvery), nil
}

func startAxiomClient(dataset string, ingest ingestFunc, flushEvery time.Duration) *axiomClient {
	if flushEvery <= 0 {
		flushEvery = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	ac := &axiomClient{
		ingest:  ingest,
		dataset: dataset,
		ch:      make(chan axiom.Event, axiomBuffer),
		cancel:  cancel,
	}
	ac.wg.Add(1)
	go ac.loop(ctx, flushEvery)
	return ac
}

// Send never blocks the logging call; events are dropped when the buffer is full.
func (a *axiomClient) Send(ev axiom.Event) {
	select {
	case a.ch <- ev:
	default:
		a.dropped.Add(1)
	}
}

func (a *axiomClient) loop(ctx context.Context, flushEvery time.Duration) {
	defer a.wg.Done()
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	batch := make([]axiom.Event, 0, axiomBatchSize)
	add := func(ev axiom.Event) {
		batch = append(batch, ev)
		if len(batch) >= axiomBatchSize {
			a.flush(batch)
			batch = batch[:0]
		}
	}
	for {
		select {
		case <-ctx.Done():
			// Events still queued at shutdown go out with the last batch.
			for len(a.ch) > 0 {
				add(<-a.ch)
			}
			a.flush(batch)
			return
		case <-ticker.C:
			a.flush(batch)
			batch = batch[:0]
		case ev := <-a.ch:
			add(ev)
		}
	}
}

func (a *axiomClient) flush(batch []axiom.Event) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = a.ingest(ctx, a.dataset, batch)
}

// Close stops the background loop after a final flush.
func (a *axiomClient) Close() error {
	a.cancel()
	a.wg.Wait()
	if n := a.dropped.Load(); n > 0 {
		return fmt.Errorf("axiom: dropped %d events with a full buffer", n)
	}
	return nil
}
