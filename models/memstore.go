package models

import (
	"context"
	"sync"
	"time"
)

// MemStore keeps everything in maps. It backs local development (empty mysql
// dsn) and the service tests. Copies go in and out so callers never alias
// stored state.
type MemStore struct {
	mu       sync.RWMutex
	projects map[string]*Project
	genJobs  map[string]*GenerationJob
	stitches map[string]*StitchJob
}

func NewMemStore() *MemStore {
	return &MemStore{
		projects: make(map[string]*Project),
		genJobs:  make(map[string]*GenerationJob),
		stitches: make(map[string]*StitchJob),
	}
}

func copyProject(p *Project) *Project {
	cp := *p
	cp.PromptList = append(PromptList(nil), p.PromptList...)
	cp.ClipResults = make(ClipMap, len(p.ClipResults))
	for k, v := range p.ClipResults {
		cp.ClipResults[k] = v
	}
	return &cp
}

func copyGenJob(j *GenerationJob) *GenerationJob {
	cp := *j
	return &cp
}

func copyStitchJob(j *StitchJob) *StitchJob {
	cp := *j
	cp.OrderedInputs = append(InputList(nil), j.OrderedInputs...)
	return &cp
}

func (s *MemStore) CreateProject(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.projects[p.ID] = copyProject(p)
	return nil
}

func (s *MemStore) GetProject(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyProject(p), nil
}

func (s *MemStore) SaveProject(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[p.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Title = p.Title
	cur.Orientation = p.Orientation
	cur.DurationSeconds = p.DurationSeconds
	cur.AudioEnabled = p.AudioEnabled
	cur.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return ErrNotFound
	}
	delete(s.projects, id)
	for jid, j := range s.genJobs {
		if j.ProjectID == id {
			delete(s.genJobs, jid)
		}
	}
	for jid, j := range s.stitches {
		if j.ProjectID == id {
			delete(s.stitches, jid)
		}
	}
	return nil
}

func (s *MemStore) BeginGeneration(ctx context.Context, id string, prompts []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return ErrNotFound
	}
	p.PromptList = append(PromptList(nil), prompts...)
	p.ClipResults = ClipMap{}
	p.Status = ProjectStatusGenerating
	p.ErrorInfo = ""
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) SetClipResult(ctx context.Context, id string, index int, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return ErrNotFound
	}
	if p.ClipResults == nil {
		p.ClipResults = ClipMap{}
	}
	if _, present := p.ClipResults[index]; present {
		return nil
	}
	p.ClipResults[index] = ref
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) UpdateProjectStatus(ctx context.Context, id string, status, errorInfo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	p.ErrorInfo = errorInfo
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) SetStitchedResult(ctx context.Context, id string, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return ErrNotFound
	}
	p.StitchedResult = ref
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) ClearStitchedResult(ctx context.Context, id string) error {
	return s.SetStitchedResult(ctx, id, "")
}

func (s *MemStore) CreateGenerationJobs(ctx context.Context, jobs []*GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, j := range jobs {
		j.CreatedAt = now
		j.UpdatedAt = now
		s.genJobs[j.ID] = copyGenJob(j)
	}
	return nil
}

func (s *MemStore) GetGenerationJob(ctx context.Context, id string) (*GenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.genJobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyGenJob(j), nil
}

func (s *MemStore) UpdateGenerationJob(ctx context.Context, job *GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.genJobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	cur.State = job.State
	cur.ClipRef = job.ClipRef
	cur.Error = job.Error
	cur.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) ListBatchJobs(ctx context.Context, batchID string) ([]*GenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var jobs []*GenerationJob
	for _, j := range s.genJobs {
		if j.BatchID == batchID {
			jobs = append(jobs, copyGenJob(j))
		}
	}
	return jobs, nil
}

func (s *MemStore) CreateStitchJob(ctx context.Context, job *StitchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	s.stitches[job.ID] = copyStitchJob(job)
	return nil
}

func (s *MemStore) GetStitchJob(ctx context.Context, id string) (*StitchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.stitches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyStitchJob(j), nil
}

func (s *MemStore) UpdateStitchJob(ctx context.Context, job *StitchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.stitches[job.ID]
	if !ok {
		return ErrNotFound
	}
	cur.State = job.State
	cur.ResultRef = job.ResultRef
	cur.Error = job.Error
	cur.UpdatedAt = time.Now()
	return nil
}
