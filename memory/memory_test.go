package memory

import (
	"strings"
	"testing"
	"time"
)

func TestTimestampKeys(t *testing.T) {
	loc := time.FixedZone("plus2", 2*60*60)
	now := time.Date(2026, 3, 4, 7, 8, 9, 12_000, loc)

	got := TimestampKeys{}.Next(now)
	if got != "2026-03-04T05:08:09.000012" {
		t.Errorf("Next = %q", got)
	}

	// Whole seconds keep the fractional part.
	got = TimestampKeys{}.Next(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if got != "2026-01-01T00:00:00.000000" {
		t.Errorf("Next = %q", got)
	}
}

func TestKeysSortChronologically(t *testing.T) {
	earlier := TimestampKeys{}.Next(time.Date(2026, 1, 1, 9, 59, 59, 999_999_000, time.UTC))
	later := TimestampKeys{}.Next(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
	if !(earlier < later) {
		t.Errorf("%s should sort before %s", earlier, later)
	}

	u := &UniqueTimestampKeys{}
	a := u.Next(baseTime)
	b := u.Next(baseTime)
	if a == b || !(a < b) {
		t.Errorf("unique keys should differ and ascend: %s, %s", a, b)
	}
	if !strings.HasPrefix(a, TimestampKeys{}.Next(baseTime)+"_") {
		t.Errorf("unique key should extend the timestamp key: %s", a)
	}
}

func TestKeysFor(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"", false},
		{"timestamp", false},
		{"unique", false},
		{"random", true},
	}
	for _, tt := range tests {
		_, err := KeysFor(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("KeysFor(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestValidKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"2026-10-16T09:30:00.000001", true},
		{"2026-10-16T09:30:00.000001_000000001", true},
		{"", false},
		{".", false},
		{"..", false},
		{"../etc/passwd", false},
		{"a/b", false},
		{`a\b`, false},
		{"a\x00b", false},
	}
	for _, tt := range tests {
		if got := ValidKey(tt.key); got != tt.want {
			t.Errorf("ValidKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"", ".json"},
		{"json", ".json"},
		{"yaml", ".yaml"},
		{"yml", ".yaml"},
	}
	for _, tt := range tests {
		c, err := CodecFor(tt.format)
		if err != nil {
			t.Fatalf("CodecFor(%q) failed: %v", tt.format, err)
		}
		if c.Ext() != tt.ext {
			t.Errorf("CodecFor(%q).Ext() = %q, want %q", tt.format, c.Ext(), tt.ext)
		}
	}
	if _, err := CodecFor("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestJSONCodec_Layout(t *testing.T) {
	rec := &Record{ID: "i", Prompt: "hello", Tags: []string{"a"}, Importance: 3, Source: "local"}
	data, err := JSONCodec{}.Encode(rec)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, "\n  \"prompt\": \"hello\"") {
		t.Errorf("expected two-space indented JSON, got:\n%s", s)
	}
	if !strings.Contains(s, "\"emotion\": null") {
		t.Errorf("expected a null emotion, got:\n%s", s)
	}
	if strings.Contains(s, "timestamp") {
		t.Errorf("empty timestamp should be omitted, got:\n%s", s)
	}
}

func TestCodecs_NullEmotionRoundTrip(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, YAMLCodec{}} {
		t.Run(codec.Ext(), func(t *testing.T) {
			for _, emotion := range []string{"", "calm"} {
				data, err := codec.Encode(&Record{Prompt: "p", Tags: []string{}, Emotion: emotion, Importance: 3, Source: "local"})
				if err != nil {
					t.Fatal(err)
				}
				got, err := codec.Decode(data)
				if err != nil {
					t.Fatalf("Decode failed: %v\n%s", err, data)
				}
				if got.Emotion != emotion {
					t.Errorf("Emotion = %q, want %q", got.Emotion, emotion)
				}
			}
		})
	}
}

func TestYAMLCodec_NullEmotion(t *testing.T) {
	data, err := YAMLCodec{}.Encode(&Record{Prompt: "p", Tags: []string{}, Importance: 3, Source: "local"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "emotion: null") {
		t.Errorf("expected a null emotion, got:\n%s", data)
	}
}

func TestCodecs_Decode(t *testing.T) {
	tests := []struct {
		name    string
		codec   Codec
		body    string
		wantErr bool
	}{
		{"json minimal", JSONCodec{}, `{"prompt":"x"}`, false},
		{"json with timestamp", JSONCodec{}, `{"prompt":"x","timestamp":"2024-01-01"}`, false},
		{"json truncated", JSONCodec{}, `{"prompt":`, true},
		{"json trailing garbage", JSONCodec{}, `{"prompt":"x"} junk`, true},
		{"json empty", JSONCodec{}, ``, true},
		{"json wrong type", JSONCodec{}, `{"importance":"high"}`, true},
		{"yaml minimal", YAMLCodec{}, "prompt: x\n", false},
		{"yaml empty", YAMLCodec{}, "  \n", true},
		{"yaml malformed", YAMLCodec{}, "prompt: [unclosed\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := tt.codec.Decode([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && rec.Tags == nil {
				t.Error("decoded Tags should be non-nil")
			}
		})
	}
}

func TestRecord_TimestampOrUnknown(t *testing.T) {
	if got := (Record{}).TimestampOrUnknown(); got != UnknownTimestamp {
		t.Errorf("got %q", got)
	}
	if got := (Record{Timestamp: "t"}).TimestampOrUnknown(); got != "t" {
		t.Errorf("got %q", got)
	}
}

func TestRecords(t *testing.T) {
	recs := Records([]Entry{{Key: "k1", Record: Record{Prompt: "a"}}, {Key: "k2", Record: Record{Prompt: "b"}}})
	if len(recs) != 2 || recs[0].Prompt != "a" || recs[1].Prompt != "b" {
		t.Errorf("unexpected records %+v", recs)
	}
}
