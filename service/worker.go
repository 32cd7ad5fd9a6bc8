package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Uploader persists a produced artifact and returns its stable reference.
// Injected so tests can run the worker protocol without an object store.
type Uploader func(ctx context.Context, reader io.Reader, objectName string, size int64) (string, error)

// WorkerClient implements Capability against the external generation worker:
// POST /v1/generate submits, GET /v1/jobs/{id} is polled until terminal, and
// the produced artifact is copied into the object store so the reference the
// core keeps stays addressable after the worker recycles its output.
type WorkerClient struct {
	endpoint     string
	http         *http.Client
	upload       Uploader
	pollInterval time.Duration
}

func NewWorkerClient(endpoint string, upload Uploader) *WorkerClient {
	return &WorkerClient{
		endpoint:     endpoint,
		http:         &http.Client{},
		upload:       upload,
		pollInterval: 3 * time.Second,
	}
}

type workerJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
	Result struct {
		ResourceURL string `json:"resource_url"`
	} `json:"result"`
}

func (w *WorkerClient) GenerateClip(ctx context.Context, req ClipRequest) (string, error) {
	params := map[string]interface{}{
		"prompt":           req.Prompt,
		"prompt_index":     req.PromptIndex,
		"orientation":      req.Orientation,
		"duration_seconds": req.DurationSeconds,
	}
	resourceURL, err := w.runJob(ctx, req.JobID, req.ProjectID, "generate_clip", params)
	if err != nil {
		return "", err
	}
	objectName := fmt.Sprintf("projects/%s/clips/%s.mp4", req.ProjectID, req.JobID)
	return w.persist(ctx, resourceURL, objectName)
}

func (w *WorkerClient) StitchClips(ctx context.Context, req StitchRequest) (string, error) {
	params := map[string]interface{}{
		"inputs": req.Inputs,
		// Inputs are normalized to the first clip's properties.
		"normalize_to_first": true,
		"audio_enabled":      req.AudioEnabled,
		"orientation":        req.Orientation,
	}
	resourceURL, err := w.runJob(ctx, req.JobID, req.ProjectID, "stitch_reel", params)
	if err != nil {
		return "", err
	}
	objectName := fmt.Sprintf("projects/%s/reels/%s.mp4", req.ProjectID, req.JobID)
	return w.persist(ctx, resourceURL, objectName)
}

// runJob submits one worker job and polls it to a terminal state, returning
// the worker-side resource URL.
func (w *WorkerClient) runJob(ctx context.Context, jobID, projectID, jobType string, params map[string]interface{}) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"id":         jobID,
		"project_id": projectID,
		"type":       jobType,
		"parameters": params,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := w.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("worker status code: %d", resp.StatusCode)
	}
	var submitted workerJob
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", fmt.Errorf("decode response failed: %w", err)
	}
	if submitted.ID == "" {
		return "", fmt.Errorf("worker response missing job id")
	}
	return w.pollJob(ctx, submitted.ID)
}

func (w *WorkerClient) pollJob(ctx context.Context, workerJobID string) (string, error) {
	jobURL := fmt.Sprintf("%s/v1/jobs/%s", w.endpoint, workerJobID)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("polling canceled: %w", ctx.Err())
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, nil)
			if err != nil {
				return "", err
			}
			resp, err := w.http.Do(req)
			if err != nil {
				// transient network error, keep polling until the deadline
				continue
			}
			var job workerJob
			decodeErr := json.NewDecoder(resp.Body).Decode(&job)
			resp.Body.Close()
			if decodeErr != nil {
				continue
			}
			switch job.Status {
			case "succeeded", "finished", "completed", "success":
				if job.Result.ResourceURL == "" {
					return "", fmt.Errorf("worker job %s finished without a resource", workerJobID)
				}
				return job.Result.ResourceURL, nil
			case "failed", "error":
				return "", fmt.Errorf("worker reported failure: %s", job.Error)
			}
		}
	}
}

// persist copies the worker output into the object store and returns the
// stable reference.
func (w *WorkerClient) persist(ctx context.Context, resourceURL, objectName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download status: %d", resp.StatusCode)
	}
	return w.upload(ctx, resp.Body, objectName, resp.ContentLength)
}
