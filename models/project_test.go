package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipMapRefsInOrder(t *testing.T) {
	m := ClipMap{7: "g", 0: "a", 3: "d"}
	assert.Equal(t, []string{"a", "d", "g"}, m.RefsInOrder())
	assert.Empty(t, ClipMap{}.RefsInOrder())
}

func TestClipMapColumnRoundTrip(t *testing.T) {
	m := ClipMap{0: "ref-0", 12: "ref-12"}
	v, err := m.Value()
	require.NoError(t, err)

	var got ClipMap
	require.NoError(t, got.Scan(v))
	assert.Equal(t, m, got)

	var null ClipMap
	require.NoError(t, null.Scan(nil))
	assert.Nil(t, null)
}

func TestMemStoreSetClipResultWriteOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.CreateProject(ctx, &Project{ID: "p1", Status: ProjectStatusGenerating}))

	require.NoError(t, s.SetClipResult(ctx, "p1", 2, "first"))
	require.NoError(t, s.SetClipResult(ctx, "p1", 2, "second"))

	p, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", p.ClipResults[2], "a present index is never overwritten")

	assert.ErrorIs(t, s.SetClipResult(ctx, "ghost", 0, "x"), ErrNotFound)
}

func TestMemStoreBeginGenerationResetsClips(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.CreateProject(ctx, &Project{
		ID:          "p1",
		Status:      ProjectStatusReady,
		ClipResults: ClipMap{0: "old"},
		ErrorInfo:   "stale",
	}))

	require.NoError(t, s.BeginGeneration(ctx, "p1", []string{"a", "b"}))
	p, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, ProjectStatusGenerating, p.Status)
	assert.Empty(t, p.ClipResults)
	assert.Empty(t, p.ErrorInfo)
	assert.Equal(t, PromptList{"a", "b"}, p.PromptList)
}

func TestMemStoreDeleteProjectRemovesJobs(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.CreateProject(ctx, &Project{ID: "p1"}))
	require.NoError(t, s.CreateGenerationJobs(ctx, []*GenerationJob{
		{ID: "j1", ProjectID: "p1", BatchID: "b1", State: JobStatePending},
	}))

	require.NoError(t, s.DeleteProject(ctx, "p1"))
	_, err := s.GetGenerationJob(ctx, "j1")
	assert.ErrorIs(t, err, ErrNotFound)
}
