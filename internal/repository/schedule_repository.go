package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/internal/internaltypes"
	"github.com/maheshrc27/reels-poster/internal/models"
)

type ScheduleRepository interface {
	Load(ctx context.Context) ([]*models.Record, error)
	Save(ctx context.Context, records []*models.Record) error
}

// NewScheduleRepository picks the backend named by cfg.ScheduleStorage.
func NewScheduleRepository(ctx context.Context, cfg config.Config) (ScheduleRepository, error) {
	switch cfg.ScheduleStorage {
	case "", config.StorageFile:
		return NewFileScheduleRepository(cfg.SchedulePath), nil
	case config.StorageR2:
		client, err := NewR2Client(ctx, cfg.R2)
		if err != nil {
			return nil, err
		}
		return NewR2ScheduleRepository(client, cfg.R2.BucketName, cfg.R2.ScheduleKey), nil
	default:
		return nil, &internaltypes.ConfigError{Msg: fmt.Sprintf("unknown SCHEDULE_STORAGE %q", cfg.ScheduleStorage)}
	}
}

type fileScheduleRepository struct {
	path string
}

func NewFileScheduleRepository(path string) ScheduleRepository {
	return &fileScheduleRepository{path: path}
}

func (r *fileScheduleRepository) Load(ctx context.Context) ([]*models.Record, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*models.Record{}, nil
	}
	if err != nil {
		slog.Info(err.Error())
		return nil, &internaltypes.PersistenceError{Op: "read", Path: r.path, Err: err}
	}

	records, err := decodeSchedule(data)
	if err != nil {
		return nil, &internaltypes.PersistenceError{Op: "parse", Path: r.path, Err: err}
	}
	return records, nil
}

func (r *fileScheduleRepository) Save(ctx context.Context, records []*models.Record) error {
	data, err := encodeSchedule(records)
	if err != nil {
		return &internaltypes.PersistenceError{Op: "encode", Path: r.path, Err: err}
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".schedule-*.json")
	if err != nil {
		return &internaltypes.PersistenceError{Op: "write", Path: r.path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(r.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return &internaltypes.PersistenceError{Op: "write", Path: r.path, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &internaltypes.PersistenceError{Op: "write", Path: r.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &internaltypes.PersistenceError{Op: "write", Path: r.path, Err: err}
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return &internaltypes.PersistenceError{Op: "write", Path: r.path, Err: err}
	}
	return nil
}

func decodeSchedule(data []byte) ([]*models.Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty schedule document")
	}
	var records []*models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		// a literal null
		return nil, errors.New("schedule is not a JSON array")
	}
	for i, rec := range records {
		if rec == nil {
			return nil, fmt.Errorf("schedule entry %d is null", i)
		}
	}
	return records, nil
}

func encodeSchedule(records []*models.Record) ([]byte, error) {
	if records == nil {
		records = []*models.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
