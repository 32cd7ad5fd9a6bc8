package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_DeliversInOrderPerProject(t *testing.T) {
	p := NewPublisher()
	sub := p.Subscribe("p1")
	defer p.Unsubscribe(sub)

	for i := 0; i < 5; i++ {
		p.Publish(Event{Type: EventGenerationStarted, ProjectID: "p1", JobID: fmt.Sprintf("j%d", i)})
	}
	got := drainEvents(sub)
	require.Len(t, got, 5)
	for i, evt := range got {
		assert.Equal(t, fmt.Sprintf("j%d", i), evt.JobID)
		assert.False(t, evt.Timestamp.IsZero())
	}
}

func TestPublisher_ScopedToProject(t *testing.T) {
	p := NewPublisher()
	sub1 := p.Subscribe("p1")
	sub2 := p.Subscribe("p2")
	defer p.Unsubscribe(sub1)
	defer p.Unsubscribe(sub2)

	p.Publish(Event{Type: EventGenerationDone, ProjectID: "p1"})

	assert.Len(t, drainEvents(sub1), 1)
	assert.Empty(t, drainEvents(sub2))
}

func TestPublisher_DropsWhenSubscriberLags(t *testing.T) {
	p := NewPublisher()
	sub := p.Subscribe("p1")
	defer p.Unsubscribe(sub)

	// Publishing past the buffer never blocks; the surplus is dropped.
	for i := 0; i < subscriberBuffer+10; i++ {
		p.Publish(Event{Type: EventGenerationStarted, ProjectID: "p1"})
	}
	assert.Len(t, drainEvents(sub), subscriberBuffer)
}

func TestPublisher_LateSubscriberMissesHistory(t *testing.T) {
	p := NewPublisher()
	p.Publish(Event{Type: EventGenerationDone, ProjectID: "p1"})

	sub := p.Subscribe("p1")
	defer p.Unsubscribe(sub)
	assert.Empty(t, drainEvents(sub), "the stream is not a record of history")
}

func TestPublisher_UnsubscribeClosesChannel(t *testing.T) {
	p := NewPublisher()
	sub := p.Subscribe("p1")
	p.Unsubscribe(sub)

	_, open := <-sub.C
	assert.False(t, open)

	// A second unsubscribe and publishes after the fact are harmless.
	p.Unsubscribe(sub)
	p.Publish(Event{Type: EventGenerationDone, ProjectID: "p1"})
}
