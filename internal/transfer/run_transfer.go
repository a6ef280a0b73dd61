package transfer

// RunRequest is the optional body of POST /run. Omitted fields fall back to
// the configured defaults.
type RunRequest struct {
	WindowMin *int  `json:"window_min"`
	DryRun    *bool `json:"dry_run"`
	AlsoStory *bool `json:"also_story"`
	MaxItems  *int  `json:"max_items"`
}

type RunResponse struct {
	Status    string `json:"status"`
	RunID     string `json:"run_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Changed   *bool  `json:"changed,omitempty"`
	Published *int   `json:"published,omitempty"`
	Failed    *int   `json:"failed,omitempty"`
}
