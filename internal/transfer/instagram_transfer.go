package transfer

const (
	MediaTypeReels   = "REELS"
	MediaTypeStories = "STORIES"
	MediaTypeImage   = "IMAGE"
)

const (
	StatusFinished = "FINISHED"
	StatusError    = "ERROR"
)

type ContainerRequest struct {
	MediaType   string
	VideoURL    string
	ImageURL    string
	Caption     *string
	ShareToFeed bool
}

type InstagramIDResponse struct {
	ID string `json:"id"`
}

type ContainerStatus struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
}

type InstagramErrorResponse struct {
	Error struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}

// DryRunInfo is stored on a record instead of publishing when dry run is on.
type DryRunInfo struct {
	DryRun         bool   `json:"dry_run"`
	VideoURL       string `json:"video_url"`
	CaptionPreview string `json:"caption_preview"`
	AlsoStory      bool   `json:"also_story,omitempty"`
}

type PublishResult struct {
	CreationID   string
	MediaID      string
	MediaURL     string
	StoryMediaID string
	// StoryErr is set when the main post went out but the story did not.
	StoryErr error
	DryRun   *DryRunInfo
}
