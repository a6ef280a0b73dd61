package config

import (
	"os"
	"time"

	"github.com/spf13/cast"
)

const (
	StorageFile = "file"
	StorageR2   = "r2"
)

type R2 struct {
	AccountID   string
	AccessKey   string
	SecretKey   string
	BucketName  string
	ScheduleKey string
	// Endpoint overrides the account derived R2 endpoint, e.g. for MinIO.
	Endpoint string
}

type Config struct {
	InstagramAccessToken string
	InstagramUserID      string
	PublicBaseURL        string
	GraphAPIBase         string
	ScheduleStorage      string
	SchedulePath         string
	R2                   R2
	JobToken             string
	JobSigningKey        string
	SecretKey            string
	WindowMin            int
	Interval             time.Duration
	DryRun               bool
	AlsoStory            bool
	MaxItems             int
	RunLoop              bool
	Port                 string
}

func LoadConfig() *Config {
	return &Config{
		InstagramAccessToken: getEnv("IG_ACCESS_TOKEN", ""),
		InstagramUserID:      getEnv("IG_USER_ID", ""),
		PublicBaseURL:        getEnv("PUBLIC_BASE_URL", ""),
		GraphAPIBase:         getEnv("GRAPH_API_BASE", "https://graph.facebook.com/v21.0"),
		ScheduleStorage:      getEnv("SCHEDULE_STORAGE", StorageFile),
		SchedulePath:         getEnv("SCHEDULE_PATH", "reels/schedule.json"),
		R2: R2{
			AccountID:   getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:   getEnv("R2_ACCESS_KEY", ""),
			SecretKey:   getEnv("R2_SECRET_KEY", ""),
			BucketName:  getEnv("R2_BUCKET_NAME", ""),
			ScheduleKey: getEnv("R2_SCHEDULE_KEY", "schedule.json"),
			Endpoint:    getEnv("R2_ENDPOINT", ""),
		},
		JobToken:      getEnv("JOB_TOKEN", ""),
		JobSigningKey: getEnv("JOB_SIGNING_KEY", ""),
		SecretKey:     getEnv("SECRET_KEY", ""),
		WindowMin:     cast.ToInt(getEnv("WINDOW_MIN", "20")),
		Interval:      time.Duration(cast.ToInt(getEnv("INTERVAL_SEC", "60"))) * time.Second,
		DryRun:        cast.ToBool(getEnv("DRY_RUN", "false")),
		AlsoStory:     cast.ToBool(getEnv("ALSO_STORY", "true")),
		MaxItems:      cast.ToInt(getEnv("MAX_ITEMS", "0")),
		RunLoop:       cast.ToBool(getEnv("RUN_LOOP", "false")),
		Port:          getEnv("PORT", "10000"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
