package utils

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func TestStreamConfigEqual(t *testing.T) {
	base := nats.StreamConfig{
		Name:      "outreach_events",
		Subjects:  []string{"v1.outreach.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    30 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}

	same := base
	assert.True(t, StreamConfigEqual(base, same))

	differentSubjects := base
	differentSubjects.Subjects = []string{"v1.other.>"}
	assert.False(t, StreamConfigEqual(base, differentSubjects))

	differentAge := base
	differentAge.MaxAge = 7 * 24 * time.Hour
	assert.False(t, StreamConfigEqual(base, differentAge))
}

func TestConsumerConfigEqual(t *testing.T) {
	base := nats.ConsumerConfig{
		Durable:       "outreach_enrollment",
		AckPolicy:     nats.AckExplicitPolicy,
		FilterSubject: "v1.outreach.enrollment.requested.company-1",
		MaxDeliver:    5,
	}

	same := base
	assert.True(t, ConsumerConfigEqual(base, same))

	differentFilter := base
	differentFilter.FilterSubject = "v1.outreach.enrollment.requested.company-2"
	assert.False(t, ConsumerConfigEqual(base, differentFilter))

	differentMaxDeliver := base
	differentMaxDeliver.MaxDeliver = 3
	assert.False(t, ConsumerConfigEqual(base, differentMaxDeliver))
}
