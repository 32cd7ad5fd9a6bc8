package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Job state constants, shared by generation and stitch jobs.
const (
	JobStatePending   = "pending"
	JobStateRunning   = "running"
	JobStateSucceeded = "succeeded"
	JobStateFailed    = "failed"
)

// JobSettled reports whether a job reached a terminal state.
func JobSettled(state string) bool {
	return state == JobStateSucceeded || state == JobStateFailed
}

// GenerationJob is one clip-generation task. A submitGeneration call creates
// one job per prompt, all under the same BatchID; jobs never depend on each
// other and settle independently.
type GenerationJob struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectID   string    `gorm:"index" json:"projectId"`
	BatchID     string    `gorm:"index" json:"batchId"`
	PromptIndex int       `json:"promptIndex"`
	Prompt      string    `json:"prompt"`
	State       string    `json:"state"`
	ClipRef     string    `json:"clipRef,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (GenerationJob) TableName() string {
	return "generation_job"
}

// StitchJob combines the currently present clips into one reel. At most one
// may be in flight per project. PriorStatus records the project status the
// coordinator reverts to when the job fails.
type StitchJob struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectID     string    `gorm:"index" json:"projectId"`
	OrderedInputs InputList `gorm:"type:json" json:"orderedInputs"`
	PriorStatus   string    `json:"priorStatus"`
	State         string    `json:"state"`
	ResultRef     string    `json:"resultRef,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (StitchJob) TableName() string {
	return "stitch_job"
}

// InputList is the stitch input order (clip refs ascending by promptIndex),
// stored as a JSON column.
type InputList []string

func (l InputList) Value() (driver.Value, error) {
	if l == nil {
		l = InputList{}
	}
	return json.Marshal(l)
}

func (l *InputList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, l)
}
