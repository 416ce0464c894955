package memory

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var errEmptyDocument = stderrors.New("empty document")

// Codec encodes records to a human-readable file body and back.
type Codec interface {
	// Ext is the file extension, including the leading dot.
	Ext() string
	Encode(rec *Record) ([]byte, error)
	Decode(data []byte) (*Record, error)
}

// CodecFor returns the codec for a storage format name ("json" or "yaml").
func CodecFor(format string) (Codec, error) {
	switch format {
	case "", "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown storage format %q (use json or yaml)", format)
	}
}

// JSONCodec writes two-space indented JSON.
type JSONCodec struct{}

func (JSONCodec) Ext() string { return ".json" }

func (JSONCodec) Encode(rec *Record) ([]byte, error) {
	return json.MarshalIndent(rec, "", "  ")
}

func (JSONCodec) Decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return &rec, nil
}

// YAMLCodec writes YAML documents.
type YAMLCodec struct{}

func (YAMLCodec) Ext() string { return ".yaml" }

func (YAMLCodec) Encode(rec *Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (YAMLCodec) Decode(data []byte) (*Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyDocument
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return &rec, nil
}
