// Package store saves the raw responses of a run so the analysis can be
// repeated offline without querying the model again.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ResponseSet is the on-disk record of one run.
type ResponseSet struct {
	RunID            string    `json:"run_id"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	CreatedAt        time.Time `json:"created_at"`
	Dataset          string    `json:"dataset,omitempty"`
	BaselinePrompt   string    `json:"baseline_prompt,omitempty"`
	ExperimentPrompt string    `json:"experiment_prompt,omitempty"`
	Baseline         []string  `json:"baseline"`
	Experiment       []string  `json:"experiment"`
}

// New returns an empty ResponseSet with a fresh run id.
func New(provider, model string) *ResponseSet {
	return &ResponseSet{
		RunID:     uuid.NewString(),
		Provider:  provider,
		Model:     model,
		CreatedAt: time.Now().UTC(),
	}
}

// DefaultPath returns the file name used when no --save path is given.
func DefaultPath(runID string) string {
	return "responses-" + runID + ".json"
}

// Save writes rs to path as indented JSON. The file is written next to its
// destination and renamed into place so a crash never leaves a partial file.
func Save(path string, rs *ResponseSet) error {
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding response set: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".responses-*.json")
	if err != nil {
		return fmt.Errorf("saving response set: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("saving response set: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving response set: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving response set: %w", err)
	}
	return nil
}

// Load reads a response set written by Save.
func Load(path string) (*ResponseSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading response set: %w", err)
	}
	var rs ResponseSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing response set %s: %w", path, err)
	}
	if err := uuid.Validate(rs.RunID); rs.RunID != "" && err != nil {
		return nil, fmt.Errorf("response set %s: invalid run id %q: %w", path, rs.RunID, err)
	}
	return &rs, nil
}
