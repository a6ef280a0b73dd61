package models

import "time"

type RunOptions struct {
	WindowMin int  `json:"window_min"`
	DryRun    bool `json:"dry_run"`
	AlsoStory bool `json:"also_story"`
	// MaxItems caps publish attempts per cycle, 0 means no cap.
	MaxItems int `json:"max_items"`
}

type CycleResult struct {
	Changed   bool `json:"changed"`
	Published int  `json:"published"`
	Failed    int  `json:"failed"`
	DryRun    int  `json:"dry_run"`
}

// RunStatus is the snapshot of one cycle invocation served by /last.
type RunStatus struct {
	RunID      string     `json:"run_id,omitempty"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Ran        bool       `json:"ran"`
	Changed    bool       `json:"changed"`
	Published  int        `json:"published"`
	Failed     int        `json:"failed"`
	Error      *string    `json:"error"`
}
