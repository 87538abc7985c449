package consumer_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	kafkaconsumer "sigil/internal/platform/kafka/consumer"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/events"
	"sigil/pkg/platform/events/consumer"
)

type RouterSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.logger = slog.New(slog.DiscardHandler)
}

func (s *RouterSuite) message(ev events.Event) *kafkaconsumer.Message {
	value, err := json.Marshal(ev)
	s.Require().NoError(err)
	return &kafkaconsumer.Message{Topic: "sigil.issuance.events", Value: value}
}

func (s *RouterSuite) TestRoutesByEventName() {
	router := consumer.NewRouter(s.logger, nil)

	var handled []events.Name
	router.Register(events.NameAttested, consumer.EventHandlerFunc(func(_ context.Context, ev events.Event) error {
		handled = append(handled, ev.Name)
		return nil
	}))

	ev, err := events.NewAttested(id.NewAttestationID(), "PAYMENT", id.SubjectID("user-1"), time.Now())
	s.Require().NoError(err)

	s.Require().NoError(router.Handle(context.Background(), s.message(ev)))
	s.Equal([]events.Name{events.NameAttested}, handled)
}

func (s *RouterSuite) TestUnhandledEventFallsBack() {
	var sawFallback bool
	router := consumer.NewRouter(s.logger, consumer.EventHandlerFunc(func(context.Context, events.Event) error {
		sawFallback = true
		return nil
	}))

	ev, err := events.NewTokenRevoked(id.NewTokenID(), "fraud", time.Now())
	s.Require().NoError(err)

	s.Require().NoError(router.Handle(context.Background(), s.message(ev)))
	s.True(sawFallback)
}

func (s *RouterSuite) TestMalformedPayloadIsSkipped() {
	router := consumer.NewRouter(s.logger, nil)

	err := router.Handle(context.Background(), &kafkaconsumer.Message{Value: []byte("not-json")})

	s.NoError(err)
}
