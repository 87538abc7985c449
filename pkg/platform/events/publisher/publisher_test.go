package publisher_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	id "sigil/pkg/domain"
	"sigil/pkg/platform/events"
	"sigil/pkg/platform/events/outbox"
	"sigil/pkg/platform/events/publisher"
)

type PublisherSuite struct {
	suite.Suite
	store *outbox.MemoryStore
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.store = outbox.NewMemoryStore()
}

func (s *PublisherSuite) event() events.Event {
	ev, err := events.NewAttested(id.NewAttestationID(), "PAYMENT", id.SubjectID("user-1"), time.Now())
	s.Require().NoError(err)
	return ev
}

func (s *PublisherSuite) TestEmitSyncAppendsToStore() {
	pub := publisher.New(s.store)

	err := pub.Emit(context.Background(), s.event())

	s.Require().NoError(err)
	s.Len(s.store.List(), 1)
}

func (s *PublisherSuite) TestEmitAsyncDrainsOnClose() {
	pub := publisher.New(s.store, publisher.WithAsyncBuffer(16))

	for range 5 {
		s.Require().NoError(pub.Emit(context.Background(), s.event()))
	}
	pub.Close()

	s.Len(s.store.List(), 5)
}

// blockingStore parks Append until released, so the test can hold the drain
// goroutine and fill the inbox deterministically.
type blockingStore struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingStore) Append(_ context.Context, _ events.Event) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return nil
}

func (s *PublisherSuite) TestEmitAsyncFullBufferDropsAndCounts() {
	store := &blockingStore{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "events_dropped_total"})
	pub := publisher.New(store,
		publisher.WithAsyncBuffer(1),
		publisher.WithDropCounter(dropped),
	)
	defer pub.Close()
	defer close(store.release)

	// First event is taken by the drain goroutine, which blocks in Append.
	s.Require().NoError(pub.Emit(context.Background(), s.event()))
	<-store.started

	// Second event fills the one-slot buffer; the third has nowhere to go.
	s.Require().NoError(pub.Emit(context.Background(), s.event()))
	err := pub.Emit(context.Background(), s.event())

	s.Require().Error(err)
	s.Equal(float64(1), testutil.ToFloat64(dropped))
}

func (s *PublisherSuite) TestEmitSetsTimestampWhenZero() {
	pub := publisher.New(s.store)

	ev := s.event()
	ev.Timestamp = time.Time{}
	s.Require().NoError(pub.Emit(context.Background(), ev))

	stored := s.store.List()
	s.Require().Len(stored, 1)
	s.False(stored[0].Event.Timestamp.IsZero())
}
