package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/miradorstack/netpulse/internal/models"
	"github.com/miradorstack/netpulse/internal/repo"
	"github.com/miradorstack/netpulse/internal/transport"
	"github.com/miradorstack/netpulse/internal/utils"
)

type failingStore struct {
	repo.SampleStore
}

func (failingStore) Save(context.Context, models.PerformanceSample) (models.PerformanceSample, error) {
	return models.PerformanceSample{}, utils.NewAppError("test", utils.KindPersistence, "insert", errors.New("disk full"))
}

var sample = models.PerformanceSample{
	NodeID:     103,
	NetworkID:  201,
	Latency:    33.3,
	Throughput: 91.2,
	ErrorRate:  0.05,
	Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
}

func TestHandleStoresValidSample(t *testing.T) {
	store := repo.NewMemoryStore()
	c := NewConsumer(nil, store, nil)

	payload, err := transport.Encode(sample)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := c.Handle(context.Background(), transport.Message{Value: payload, Source: "test"}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	all, err := store.FindAll(context.Background())
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if len(all) != 1 || all[0].ID != 1 || all[0].Latency != sample.Latency {
		t.Fatalf("unexpected stored samples %+v", all)
	}
}

func TestHandleDropsMalformedPayload(t *testing.T) {
	store := repo.NewMemoryStore()
	c := NewConsumer(nil, store, nil)

	err := c.Handle(context.Background(), transport.Message{Value: []byte("{")})
	if !utils.IsKind(err, utils.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Fatalf("malformed payload must not be stored, count %d", n)
	}
}

func TestHandleDropsInvalidSample(t *testing.T) {
	store := repo.NewMemoryStore()
	c := NewConsumer(nil, store, nil)

	bad := sample
	bad.NodeID = 0
	payload, _ := transport.Encode(bad)
	if err := c.Handle(context.Background(), transport.Message{Value: payload}); !utils.IsKind(err, utils.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestHandlePersistFailureIsReported(t *testing.T) {
	c := NewConsumer(nil, failingStore{}, nil)
	payload, _ := transport.Encode(sample)
	if err := c.Handle(context.Background(), transport.Message{Value: payload}); !utils.IsKind(err, utils.KindPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestRunDrainsChannelBus(t *testing.T) {
	bus := transport.NewChannelBus(16)
	store := repo.NewMemoryStore()
	c := NewConsumer(bus, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	for _, node := range []int{100, 101, 102, 103, 104, 119} {
		s := sample
		s.NodeID = node
		if err := bus.Publish(ctx, s); err != nil {
			t.Fatalf("publish node %d: %v", node, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		n, _ := store.Count(context.Background())
		if n == 6 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 6 stored samples, got %d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}
