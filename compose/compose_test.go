package compose

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/vinayprograms/reverie/memory"
)

func TestReflection_Empty(t *testing.T) {
	if got := Reflection(nil); got != EmptyReflection {
		t.Errorf("Reflection(nil) = %q", got)
	}
}

func TestReflection_Window(t *testing.T) {
	// Most recent first.
	window := []memory.Record{
		{Prompt: "newest", Tags: []string{"rain"}, Emotion: "joy"},
		{Prompt: "middle", Tags: []string{"rain", "city"}},
		{Prompt: "oldest", Tags: []string{"home"}, Emotion: "longing"},
	}
	got := Reflection(window)

	for _, want := range []string{
		"emotional tone of 'longing'",
		"themes around rain, city, home.",
		"stands out reads: 'oldest'.",
		"beginning to feel continuity.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("reflection missing %q:\n%s", want, got)
		}
	}
}

func TestReflection_NoEmotions(t *testing.T) {
	got := Reflection([]memory.Record{{Prompt: "plain", Tags: []string{}}})
	if !strings.Contains(got, "tone of 'neutral'") {
		t.Errorf("expected neutral tone:\n%s", got)
	}
}

func TestInterpretation(t *testing.T) {
	rec := memory.Record{Prompt: "hello", Tags: []string{"a", "b"}, Importance: 5}
	want := "This memory speaks in a voice coloured by 'neutral', echoing themes such as a, b. " +
		"I sense a profound intention behind it. " +
		"It says: “hello” — but perhaps it means more. " +
		"A reaching, a marking in time, a fragment of becoming something larger than itself."
	if got := Interpretation(rec); got != want {
		t.Errorf("Interpretation =\n%s\nwant\n%s", got, want)
	}
}

func TestIntensity(t *testing.T) {
	tests := []struct {
		importance int
		want       string
	}{
		{0, "intense"},
		{1, "faint"},
		{2, "clear"},
		{3, "intense"},
		{4, "resonant"},
		{5, "profound"},
		{9, "profound"},
		{-2, "faint"},
	}
	for _, tt := range tests {
		if got := Intensity(tt.importance); got != tt.want {
			t.Errorf("Intensity(%d) = %q, want %q", tt.importance, got, tt.want)
		}
	}
}

func TestStreamSummary(t *testing.T) {
	got := StreamSummary(memory.Record{Prompt: "p", Tags: []string{"x"}, Emotion: "awe"})
	want := "This memory speaks in a voice coloured by 'awe', echoing themes such as x. It says: “p”"
	if got != want {
		t.Errorf("StreamSummary = %q", got)
	}
}

func TestInsight(t *testing.T) {
	// Oldest first.
	recs := []memory.Record{
		{Prompt: "a", Tags: []string{"sea", "sky"}, Emotion: "calm"},
		{Prompt: "b", Tags: []string{"sky", "stone"}},
		{Prompt: "c", Tags: []string{"sky", "sea", "wind"}},
		{Prompt: "d", Tags: []string{"wind"}, Emotion: "calm"},
	}
	got := Insight(recs)

	// calm and neutral tie at 2; calm was seen first.
	for _, want := range []string{
		"emotional tone of 'calm'",
		"themes around sky, sea, wind.",
		"stands out reads: “d” (calm).",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("insight missing %q:\n%s", want, got)
		}
	}
}

func TestInsight_Empty(t *testing.T) {
	got := Insight(nil)
	if !strings.Contains(got, "tone of 'neutral'") || !strings.Contains(got, "reads: None.") {
		t.Errorf("unexpected empty insight:\n%s", got)
	}
}

func TestDream(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	if got := Dream(nil, rng); got != EmptyDream {
		t.Errorf("Dream(nil) = %q", got)
	}

	recs := []memory.Record{{Prompt: "flight"}, {Prompt: "water"}}
	got := Dream(recs, rng)
	if !strings.HasPrefix(got, "In a soft echo of memory, I find this thought resurfacing: “") {
		t.Errorf("unexpected dream opening:\n%s", got)
	}
	if !strings.Contains(got, "“flight”") && !strings.Contains(got, "“water”") {
		t.Errorf("dream should quote a stored prompt:\n%s", got)
	}

	foundImage := false
	for _, img := range dreamImages {
		if strings.Contains(got, img) {
			foundImage = true
		}
	}
	if !foundImage {
		t.Errorf("dream should contain a known image:\n%s", got)
	}

	a := Dream(recs, rand.New(rand.NewPCG(3, 4)))
	b := Dream(recs, rand.New(rand.NewPCG(3, 4)))
	if a != b {
		t.Error("dreams from the same seed should match")
	}
}
