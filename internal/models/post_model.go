package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Keys of a schedule record.
const (
	KeyID               = "id"
	KeyPostAt           = "post_at_iso"
	KeyPublicVideoURL   = "public_video_url"
	KeyCaptionMain      = "post_caption_main"
	KeyCaptionHashtags  = "post_caption_hashtags"
	KeyPublishedAt      = "published_at_iso"
	KeyPublishAttempted = "publish_attempted_at_iso"
	KeyPublishError     = "publish_error"
	KeyDryRunInfo       = "dry_run_info"
	KeyCreationID       = "ig_creation_id"
	KeyMediaID          = "ig_media_id"
	KeyStoryMediaID     = "ig_story_media_id"
	KeyStoryError       = "story_error"
)

// TimestampLayout matches the ISO 8601 stamps written into the schedule.
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

type recordField struct {
	key   string
	value json.RawMessage
}

// Record is one entry of schedule.json. Fields keep their original order and
// keys this program does not know about are carried through untouched.
type Record struct {
	fields []recordField
}

func (r *Record) index(key string) int {
	for i, f := range r.fields {
		if f.key == key {
			return i
		}
	}
	return -1
}

func (r *Record) setRaw(key string, raw json.RawMessage) {
	if i := r.index(key); i >= 0 {
		r.fields[i].value = raw
		return
	}
	r.fields = append(r.fields, recordField{key: key, value: raw})
}

// Keys returns the record keys in document order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for _, f := range r.fields {
		keys = append(keys, f.key)
	}
	return keys
}

// Raw returns the undecoded value of key.
func (r *Record) Raw(key string) (json.RawMessage, bool) {
	i := r.index(key)
	if i < 0 {
		return nil, false
	}
	return r.fields[i].value, true
}

// String returns the value of key as text. Absent keys, null and non-string
// values other than numbers read as "".
func (r *Record) String(key string) string {
	raw, ok := r.Raw(key)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// Has reports whether key holds a non-empty value.
func (r *Record) Has(key string) bool {
	raw, ok := r.Raw(key)
	if !ok {
		return false
	}
	switch string(bytes.TrimSpace(raw)) {
	case "null", `""`, "":
		return false
	}
	return true
}

func (r *Record) SetString(key, value string) {
	raw, _ := marshalValue(value)
	r.setRaw(key, raw)
}

func (r *Record) SetValue(key string, value any) error {
	raw, err := marshalValue(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	r.setRaw(key, raw)
	return nil
}

// marshalValue encodes like json.Marshal but leaves <, > and & readable.
func marshalValue(value any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (r *Record) Delete(key string) {
	if i := r.index(key); i >= 0 {
		r.fields = append(r.fields[:i], r.fields[i+1:]...)
	}
}

func (r *Record) ID() string {
	return r.String(KeyID)
}

func (r *Record) IsPublished() bool {
	return r.Has(KeyPublishedAt)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("schedule record is not a JSON object")
	}

	r.fields = nil
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in schedule record", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		r.setRaw(key, raw)
	}

	_, err = dec.Token()
	return err
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(f.value) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(f.value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NewRecord builds a record from key/value pairs, mainly for tests and tools.
func NewRecord(pairs ...any) (*Record, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("NewRecord needs key/value pairs")
	}
	r := &Record{}
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("record key %v is not a string", pairs[i])
		}
		if err := r.SetValue(key, pairs[i+1]); err != nil {
			return nil, err
		}
	}
	return r, nil
}
