package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Project status constants. Status is a derived aggregate: it is only ever
// written by the coordinators, never inferred by callers.
const (
	ProjectStatusDraft      = "draft"      // created, no generation started yet
	ProjectStatusGenerating = "generating" // a clip batch is in flight
	ProjectStatusStitching  = "stitching"  // a stitch job is in flight
	ProjectStatusReady      = "ready"      // last batch/stitch finished with at least one usable result
	ProjectStatusError      = "error"      // last batch failed entirely
)

const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

type Project struct {
	ID              string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title           string     `json:"title"`
	Orientation     string     `json:"orientation"`
	DurationSeconds int        `json:"durationSeconds"`
	AudioEnabled    bool       `json:"audioEnabled"`
	PromptList      PromptList `gorm:"type:json" json:"promptList"`
	ClipResults     ClipMap    `gorm:"type:json" json:"clipResults"`
	StitchedResult  string     `json:"stitchedResult"`
	Status          string     `json:"status"`
	ErrorInfo       string     `json:"errorInfo"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (Project) TableName() string {
	return "project"
}

// PromptList is the ordered prompt batch, stored as a JSON column.
type PromptList []string

func (p PromptList) Value() (driver.Value, error) {
	if p == nil {
		p = PromptList{}
	}
	return json.Marshal(p)
}

func (p *PromptList) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, p)
}

// ClipMap maps promptIndex -> clip reference. An index is present only after
// the matching generation job succeeded; absent means not generated or failed.
// JSON object keys must be strings, so indices are serialized as decimal keys.
type ClipMap map[int]string

func (m ClipMap) Value() (driver.Value, error) {
	out := make(map[string]string, len(m))
	for idx, ref := range m {
		out[strconv.Itoa(idx)] = ref
	}
	return json.Marshal(out)
}

func (m *ClipMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	raw := map[string]string{}
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return err
	}
	res := make(ClipMap, len(raw))
	for k, ref := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("bad clip index %q: %w", k, err)
		}
		res[idx] = ref
	}
	*m = res
	return nil
}

func (m ClipMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(m))
	for idx, ref := range m {
		out[strconv.Itoa(idx)] = ref
	}
	return json.Marshal(out)
}

func (m *ClipMap) UnmarshalJSON(data []byte) error {
	raw := map[string]string{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	res := make(ClipMap, len(raw))
	for k, ref := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("bad clip index %q: %w", k, err)
		}
		res[idx] = ref
	}
	*m = res
	return nil
}

// RefsInOrder returns the present clip references sorted by ascending
// promptIndex. Absent indices are skipped, not treated as gaps.
func (m ClipMap) RefsInOrder() []string {
	indices := make([]int, 0, len(m))
	for idx := range m {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	refs := make([]string, 0, len(indices))
	for _, idx := range indices {
		refs = append(refs, m[idx])
	}
	return refs
}
