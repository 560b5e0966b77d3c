package mock

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/mock"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/events"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
)

// ClientMock is a testify mock for events.ClientInterface
type ClientMock struct {
	mock.Mock
}

var _ events.ClientInterface = (*ClientMock)(nil)

func (m *ClientMock) SetupStream(ctx context.Context, streamConfig *nats.StreamConfig) error {
	args := m.Called(ctx, streamConfig)
	return args.Error(0)
}

func (m *ClientMock) SetupConsumer(ctx context.Context, streamName string, consumerConfig *nats.ConsumerConfig) error {
	args := m.Called(ctx, streamName, consumerConfig)
	return args.Error(0)
}

func (m *ClientMock) SubscribePush(subject, consumer, group, stream string, handler nats.MsgHandler) (*nats.Subscription, error) {
	args := m.Called(subject, consumer, group, stream, handler)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nats.Subscription), args.Error(1)
}

func (m *ClientMock) SubscribePull(streamName, subject, consumer string) (*nats.Subscription, error) {
	args := m.Called(streamName, subject, consumer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nats.Subscription), args.Error(1)
}

func (m *ClientMock) Publish(subject string, data []byte, headers map[string]string) error {
	args := m.Called(subject, data, headers)
	return args.Error(0)
}

func (m *ClientMock) Close() {
	m.Called()
}

func (m *ClientMock) NatsConn() *nats.Conn {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*nats.Conn)
}

// PublisherMock is a testify mock for events.Publisher
type PublisherMock struct {
	mock.Mock
}

var _ events.Publisher = (*PublisherMock)(nil)

func (m *PublisherMock) PublishEnrollmentCompleted(ctx context.Context, payload *model.EnrollmentCompletedPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *PublisherMock) PublishTouchpointsScheduled(ctx context.Context, payload *model.TouchpointsScheduledPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
