package service

import (
	"sync"
	"time"
)

// Event types emitted on the per-project progress feed.
const (
	EventGenerationStarted   = "generation.started"
	EventGenerationCompleted = "generation.completed"
	EventGenerationFailed    = "generation.failed"
	EventGenerationDone      = "generation.job_completed"
	EventStitchingStarted    = "stitching.started"
	EventStitchingCompleted  = "stitching.completed"
	EventStitchingFailed     = "stitching.failed"
)

// Event is one progress notification. Payloads carry the minimum a UI needs
// to update without a full re-fetch; the stream is a liveness signal, not a
// record of history — the project record stays authoritative.
type Event struct {
	Type      string      `json:"type"`
	ProjectID string      `json:"projectId"`
	JobID     string      `json:"jobId,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type ClipStartedPayload struct {
	PromptIndex int `json:"promptIndex"`
}

type ClipCompletedPayload struct {
	PromptIndex int    `json:"promptIndex"`
	ClipRef     string `json:"clipRef"`
}

type ClipFailedPayload struct {
	PromptIndex int    `json:"promptIndex"`
	Error       string `json:"error"`
}

type BatchDonePayload struct {
	ClipCount int `json:"clipCount"`
}

type StitchStartedPayload struct {
	ClipCount int `json:"clipCount"`
}

type StitchCompletedPayload struct {
	ResultRef string `json:"resultRef"`
}

type StitchFailedPayload struct {
	Error string `json:"error"`
}

// subscriber buffer size; a subscriber that falls this far behind starts
// losing events (best effort, at-most-once).
const subscriberBuffer = 64

// Subscription receives the events of one project. Close it with the
// publisher's Unsubscribe.
type Subscription struct {
	C         chan Event
	projectID string
}

// Publisher broadcasts lifecycle events per project. Delivery is
// best-effort: a full subscriber buffer drops the event rather than blocking
// a settling job. Events for a single job are published from a single
// goroutine, so within one subscription a job's started event precedes its
// terminal event.
type Publisher struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[string]map[*Subscription]struct{})}
}

func (p *Publisher) Subscribe(projectID string) *Subscription {
	sub := &Subscription{
		C:         make(chan Event, subscriberBuffer),
		projectID: projectID,
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subs[projectID] == nil {
		p.subs[projectID] = make(map[*Subscription]struct{})
	}
	p.subs[projectID][sub] = struct{}{}
	return sub
}

func (p *Publisher) Unsubscribe(sub *Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.subs[sub.projectID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(p.subs, sub.projectID)
	}
	close(sub.C)
}

// Publish fans the event out to every subscriber of its project without
// blocking.
func (p *Publisher) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for sub := range p.subs[evt.ProjectID] {
		select {
		case sub.C <- evt:
		default:
			// subscriber too slow, drop
		}
	}
}
