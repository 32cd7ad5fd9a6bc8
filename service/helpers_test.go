package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reelforge-server/models"
)

// fakeCapability scripts clip and stitch outcomes and records every request.
type fakeCapability struct {
	mu         sync.Mutex
	clip       func(ClipRequest) (string, error)
	stitch     func(StitchRequest) (string, error)
	clipReqs   []ClipRequest
	stitchReqs []StitchRequest
}

func (f *fakeCapability) GenerateClip(ctx context.Context, req ClipRequest) (string, error) {
	f.mu.Lock()
	f.clipReqs = append(f.clipReqs, req)
	fn := f.clip
	f.mu.Unlock()
	if fn == nil {
		return fmt.Sprintf("clip-%d", req.PromptIndex), nil
	}
	return fn(req)
}

func (f *fakeCapability) StitchClips(ctx context.Context, req StitchRequest) (string, error) {
	f.mu.Lock()
	f.stitchReqs = append(f.stitchReqs, req)
	fn := f.stitch
	f.mu.Unlock()
	if fn == nil {
		return "reel-1", nil
	}
	return fn(req)
}

func (f *fakeCapability) recordedStitches() []StitchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]StitchRequest(nil), f.stitchReqs...)
}

// localDispatcher runs jobs in-process. Wait blocks until every dispatched
// job has settled.
type localDispatcher struct {
	co *Coordinator
	wg sync.WaitGroup
}

func (d *localDispatcher) DispatchClip(jobID string) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.co.RunClipJob(context.Background(), jobID)
	}()
	return nil
}

func (d *localDispatcher) DispatchStitch(jobID string) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.co.RunStitchJob(context.Background(), jobID)
	}()
	return nil
}

func (d *localDispatcher) Wait() {
	d.wg.Wait()
}

func newTestCoordinator(engine Capability) (*Coordinator, *models.MemStore, *Publisher, *localDispatcher) {
	store := models.NewMemStore()
	events := NewPublisher()
	dispatcher := &localDispatcher{}
	co := NewCoordinator(store, events, engine, dispatcher, 5*time.Second)
	dispatcher.co = co
	return co, store, events, dispatcher
}

func seedProject(store *models.MemStore, id, status string, clips models.ClipMap) *models.Project {
	p := &models.Project{
		ID:           id,
		Title:        "test reel",
		Orientation:  models.OrientationPortrait,
		AudioEnabled: true,
		ClipResults:  clips,
		Status:       status,
	}
	_ = store.CreateProject(context.Background(), p)
	return p
}

// drainEvents empties a subscription after all publishers are done.
func drainEvents(sub *Subscription) []Event {
	var out []Event
	for {
		select {
		case evt := <-sub.C:
			out = append(out, evt)
		default:
			return out
		}
	}
}
