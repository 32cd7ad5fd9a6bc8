package models

import (
	"context"
	"errors"
)

// ErrNotFound is returned by every Store method that targets a record that
// does not exist. Job settles against a deleted project surface it and must
// abandon without writes.
var ErrNotFound = errors.New("record not found")

// Store is the durable owner of project and job records. Two implementations
// exist: GormStore (mysql) and MemStore (in-memory, dev/tests). Callers are
// responsible for per-project serialization of status transitions; the store
// itself only guarantees the absent-to-present rule of SetClipResult.
type Store interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	SaveProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, id string) error

	// BeginGeneration atomically replaces the prompt list, clears clip
	// results and errorInfo, and moves the project to generating.
	BeginGeneration(ctx context.Context, id string, prompts []string) error
	// SetClipResult writes clipResults[index] only if the index is absent;
	// a present entry is never overwritten.
	SetClipResult(ctx context.Context, id string, index int, ref string) error
	UpdateProjectStatus(ctx context.Context, id string, status, errorInfo string) error
	SetStitchedResult(ctx context.Context, id string, ref string) error
	ClearStitchedResult(ctx context.Context, id string) error

	CreateGenerationJobs(ctx context.Context, jobs []*GenerationJob) error
	GetGenerationJob(ctx context.Context, id string) (*GenerationJob, error)
	UpdateGenerationJob(ctx context.Context, job *GenerationJob) error
	ListBatchJobs(ctx context.Context, batchID string) ([]*GenerationJob, error)

	CreateStitchJob(ctx context.Context, job *StitchJob) error
	GetStitchJob(ctx context.Context, id string) (*StitchJob, error)
	UpdateStitchJob(ctx context.Context, job *StitchJob) error
}
