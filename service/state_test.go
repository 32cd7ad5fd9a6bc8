package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"reelforge-server/models"
)

func TestCanStartGeneration(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		conflict bool
	}{
		{"from draft", models.ProjectStatusDraft, false},
		{"from ready", models.ProjectStatusReady, false},
		{"from error", models.ProjectStatusError, false},
		{"while generating", models.ProjectStatusGenerating, true},
		{"while stitching", models.ProjectStatusStitching, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanStartGeneration(&models.Project{ID: "p1", Status: tt.status})
			if tt.conflict {
				var ce *ConflictError
				assert.True(t, errors.As(err, &ce), "expected conflict, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCanStartStitch(t *testing.T) {
	twoClips := models.ClipMap{0: "a", 1: "b"}
	tests := []struct {
		name    string
		status  string
		clips   models.ClipMap
		wantErr interface{}
	}{
		{"ready with two clips", models.ProjectStatusReady, twoClips, nil},
		{"error with two clips", models.ProjectStatusError, twoClips, nil},
		{"one clip", models.ProjectStatusReady, models.ClipMap{0: "a"}, &ValidationError{}},
		{"no clips", models.ProjectStatusReady, models.ClipMap{}, &ValidationError{}},
		{"while generating", models.ProjectStatusGenerating, twoClips, &ConflictError{}},
		{"while stitching", models.ProjectStatusStitching, twoClips, &ConflictError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanStartStitch(&models.Project{ID: "p1", Status: tt.status, ClipResults: tt.clips})
			switch tt.wantErr.(type) {
			case nil:
				assert.NoError(t, err)
			case *ValidationError:
				var ve *ValidationError
				assert.True(t, errors.As(err, &ve), "expected validation error, got %v", err)
			case *ConflictError:
				var ce *ConflictError
				assert.True(t, errors.As(err, &ce), "expected conflict error, got %v", err)
			}
		})
	}
}

func TestBatchOutcome(t *testing.T) {
	job := func(index int, state, errMsg string) *models.GenerationJob {
		return &models.GenerationJob{PromptIndex: index, State: state, Error: errMsg}
	}

	t.Run("partial success is ready", func(t *testing.T) {
		status, info := BatchOutcome([]*models.GenerationJob{
			job(0, models.JobStateSucceeded, ""),
			job(1, models.JobStateFailed, "boom"),
			job(2, models.JobStateSucceeded, ""),
		})
		assert.Equal(t, models.ProjectStatusReady, status)
		assert.Empty(t, info)
	})

	t.Run("total failure is error with summary", func(t *testing.T) {
		status, info := BatchOutcome([]*models.GenerationJob{
			job(0, models.JobStateFailed, "boom 0"),
			job(1, models.JobStateFailed, "boom 1"),
		})
		assert.Equal(t, models.ProjectStatusError, status)
		assert.Contains(t, info, "clip 0: boom 0")
		assert.Contains(t, info, "clip 1: boom 1")
	})
}

func TestValidatePrompts(t *testing.T) {
	long := make([]rune, 401)
	for i := range long {
		long[i] = 'x'
	}

	t.Run("trims and accepts", func(t *testing.T) {
		got, err := validatePrompts([]string{"  a sunrise  ", "b"})
		assert.NoError(t, err)
		assert.Equal(t, []string{"a sunrise", "b"}, got)
	})

	t.Run("rejects bad batches", func(t *testing.T) {
		many := make([]string, 51)
		for i := range many {
			many[i] = "p"
		}
		for name, prompts := range map[string][]string{
			"empty batch":          {},
			"empty prompt":         {"a", ""},
			"whitespace prompt":    {"   "},
			"over 400 runes":       {string(long)},
			"more than 50 entries": many,
		} {
			_, err := validatePrompts(prompts)
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve), "%s: expected validation error, got %v", name, err)
		}
	})

	t.Run("exactly 50 entries accepted", func(t *testing.T) {
		full := make([]string, 50)
		for i := range full {
			full[i] = fmt.Sprintf("prompt %d", i)
		}
		got, err := validatePrompts(full)
		assert.NoError(t, err)
		assert.Len(t, got, 50)
	})

	t.Run("400 runes not bytes", func(t *testing.T) {
		// 400 multi-byte runes are within the limit.
		r := make([]rune, 400)
		for i := range r {
			r[i] = '界'
		}
		_, err := validatePrompts([]string{string(r)})
		assert.NoError(t, err)
	})
}
