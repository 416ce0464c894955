package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vinayprograms/reverie/api"
	"github.com/vinayprograms/reverie/bus"
	"github.com/vinayprograms/reverie/feed"
	"github.com/vinayprograms/reverie/memory"
)

func TestFeedURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"http://localhost:8000", "ws://localhost:8000/ws", false},
		{"https://example.com/base/", "wss://example.com/base/ws", false},
		{"ws://host", "ws://host/ws", false},
		{"ftp://host", "", true},
	}
	for _, tt := range tests {
		got, err := feedURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("feedURL(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("feedURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatEvent(t *testing.T) {
	ev := bus.MemorySaved{
		Key:    "2026-10-16T09:30:00.000001",
		Record: memory.Record{Prompt: "hello", Emotion: "joy", Tags: []string{"a", "b"}},
	}
	want := "[2026-10-16T09:30:00.000001] hello (joy) #a #b"
	if got := formatEvent(ev); got != want {
		t.Errorf("formatEvent = %q, want %q", got, want)
	}

	ev.Record = memory.Record{Prompt: "plain"}
	if got := formatEvent(ev); got != "[2026-10-16T09:30:00.000001] plain" {
		t.Errorf("formatEvent = %q", got)
	}
}

func TestSplitTags(t *testing.T) {
	got := splitTags(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitTags = %v", got)
	}
	if splitTags("") != nil {
		t.Error("splitTags(\"\") should be nil")
	}
}

// lineWriter hands each write to the test goroutine.
type lineWriter struct {
	ch chan string
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.ch <- string(p)
	return len(p), nil
}

func TestPostAndFollow(t *testing.T) {
	b := bus.NewMemoryBus(bus.DefaultConfig())
	f := feed.New(b, feed.Config{AllowAnyOrigin: true}, nil)
	srv, err := api.New(api.Config{Store: memory.NewInMemoryStore(nil), Bus: b, Feed: f})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		f.Close()
		ts.Close()
		b.Close()
	})

	wsURL, _ := feedURL(ts.URL)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	out := &lineWriter{ch: make(chan string, 4)}
	go follow(conn, out)

	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount(bus.SubjectMemorySaved) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("feed never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	p := &poster{base: ts.URL, client: &http.Client{Timeout: time.Second}, tags: []string{"x"}}
	if err := p.save("typed line"); err != nil {
		t.Fatalf("save: %v", err)
	}

	select {
	case line := <-out.ch:
		if !strings.Contains(line, "typed line #x") {
			t.Errorf("printed %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event printed")
	}

	bad := &poster{base: ts.URL, client: &http.Client{Timeout: time.Second}}
	if err := bad.save("   "); err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("blank save error = %v", err)
	}
}
