package service

import (
	"fmt"
	"strings"

	"reelforge-server/models"
)

// Project state machine. Pure policy over the stored project; both
// coordinators consult it before accepting work and when deriving the
// aggregate status after a batch settles. Generating and stitching are
// mutually exclusive, so "not in either" is the whole in-flight check.

// CanStartGeneration reports whether a new clip batch may start. Allowed
// from draft, ready and error; rejected while any batch or stitch job is in
// flight.
func CanStartGeneration(p *models.Project) error {
	switch p.Status {
	case models.ProjectStatusGenerating:
		return conflictErrf("project %s already has a generation batch in flight", p.ID)
	case models.ProjectStatusStitching:
		return conflictErrf("project %s has a stitch job in flight", p.ID)
	}
	return nil
}

// CanStartStitch reports whether a stitch job may start: at least two clip
// results present and no batch or stitch job in flight.
func CanStartStitch(p *models.Project) error {
	switch p.Status {
	case models.ProjectStatusGenerating:
		return conflictErrf("project %s has a generation batch in flight", p.ID)
	case models.ProjectStatusStitching:
		return conflictErrf("project %s already has a stitch job in flight", p.ID)
	}
	if len(p.ClipResults) < 2 {
		return validationErrf("stitch needs at least 2 clips, project %s has %d", p.ID, len(p.ClipResults))
	}
	return nil
}

// BatchOutcome derives the project status once every job of a batch has
// settled: at least one success means ready; total failure means error with
// a summary of per-job failures.
func BatchOutcome(jobs []*models.GenerationJob) (status, errorInfo string) {
	succeeded := 0
	var failures []string
	for _, j := range jobs {
		switch j.State {
		case models.JobStateSucceeded:
			succeeded++
		case models.JobStateFailed:
			failures = append(failures, fmt.Sprintf("clip %d: %s", j.PromptIndex, j.Error))
		}
	}
	if succeeded >= 1 {
		return models.ProjectStatusReady, ""
	}
	return models.ProjectStatusError, "all clips failed: " + strings.Join(failures, "; ")
}

// batchSettled reports whether every job of the batch reached a terminal
// state.
func batchSettled(jobs []*models.GenerationJob) bool {
	for _, j := range jobs {
		if !models.JobSettled(j.State) {
			return false
		}
	}
	return true
}
