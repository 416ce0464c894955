package memory

import (
	"encoding/json"
	"strings"

	"github.com/vinayprograms/reverie/errors"
)

const (
	// DefaultSource is stored when a record does not name its source.
	DefaultSource = "local"

	// DefaultImportance is what the HTTP layer assigns when none is given.
	DefaultImportance = 3

	// UnknownTimestamp is reported for records whose body has no timestamp.
	UnknownTimestamp = "unknown"
)

// Record is one stored memory.
type Record struct {
	ID         string   `json:"id" yaml:"id"`
	Prompt     string   `json:"prompt" yaml:"prompt"`
	Tags       []string `json:"tags" yaml:"tags"`
	Emotion    string   `json:"emotion" yaml:"emotion"`
	Importance int      `json:"importance" yaml:"importance"`
	Source     string   `json:"source" yaml:"source"`

	// Timestamp is never written by Save; the write time lives in the key.
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// recordBody is the encoded layout. An empty emotion is written as null.
type recordBody struct {
	ID         string   `json:"id" yaml:"id"`
	Prompt     string   `json:"prompt" yaml:"prompt"`
	Tags       []string `json:"tags" yaml:"tags"`
	Emotion    *string  `json:"emotion" yaml:"emotion"`
	Importance int      `json:"importance" yaml:"importance"`
	Source     string   `json:"source" yaml:"source"`
	Timestamp  string   `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

func (r Record) body() recordBody {
	b := recordBody{
		ID:         r.ID,
		Prompt:     r.Prompt,
		Tags:       r.Tags,
		Importance: r.Importance,
		Source:     r.Source,
		Timestamp:  r.Timestamp,
	}
	if r.Emotion != "" {
		b.Emotion = &r.Emotion
	}
	return b
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.body())
}

func (r Record) MarshalYAML() (interface{}, error) {
	return r.body(), nil
}

// Entry is a decoded record together with its storage key.
type Entry struct {
	Key    string `json:"key"`
	Record Record `json:"record"`
}

// Validate checks the fields Save requires.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return errors.InvalidInput("prompt is required")
	}
	return nil
}

// applyDefaults fills the optional fields Save is responsible for.
func (r *Record) applyDefaults() {
	if r.Source == "" {
		r.Source = DefaultSource
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
}

// TimestampOrUnknown returns the body timestamp, or UnknownTimestamp.
func (r Record) TimestampOrUnknown() string {
	if r.Timestamp == "" {
		return UnknownTimestamp
	}
	return r.Timestamp
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	if r.Tags != nil {
		out.Tags = append([]string{}, r.Tags...)
	}
	return out
}

// Records strips keys from a slice of entries.
func Records(entries []Entry) []Record {
	out := make([]Record, len(entries))
	for i, e := range entries {
		out[i] = e.Record
	}
	return out
}
