package service

import (
	"net/url"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/reels-poster/internal/internaltypes"
	"github.com/maheshrc27/reels-poster/internal/models"
)

const captionPreviewLimit = 160

// ResolveMediaURL prefers the record's public_video_url and falls back to
// <base>/reels/<id>/reel.mp4.
func ResolveMediaURL(rec *models.Record, publicBaseURL string) (string, error) {
	if u := rec.String(models.KeyPublicVideoURL); u != "" {
		return u, nil
	}
	if publicBaseURL != "" {
		u, err := url.JoinPath(strings.TrimRight(publicBaseURL, "/"), "reels", rec.ID(), "reel.mp4")
		if err != nil {
			return "", &internaltypes.ConfigError{Msg: "invalid PUBLIC_BASE_URL: " + err.Error()}
		}
		return u, nil
	}
	return "", &internaltypes.ConfigError{Msg: "no public_video_url: set PUBLIC_BASE_URL or add public_video_url to the schedule record"}
}

func BuildCaption(rec *models.Record) string {
	main := strings.TrimSpace(rec.String(models.KeyCaptionMain))
	hashtags := strings.TrimSpace(rec.String(models.KeyCaptionHashtags))
	if hashtags != "" {
		return main + "\n\n" + hashtags
	}
	return main
}

func CaptionPreview(caption string) string {
	runes := []rune(caption)
	if len(runes) <= captionPreviewLimit {
		return caption
	}
	return string(runes[:captionPreviewLimit]) + "..."
}

// IsImageURL guesses the media kind from the URL's file extension. Unknown
// extensions are treated as video.
func IsImageURL(mediaURL string) bool {
	p := mediaURL
	if u, err := url.Parse(mediaURL); err == nil {
		p = u.Path
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if ext == "jpeg" {
		ext = "jpg"
	}
	if ext == "" {
		return false
	}
	return filetype.GetType(ext).MIME.Type == "image"
}
