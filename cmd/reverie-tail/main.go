// Command reverie-tail follows a reverie server's live WebSocket feed and
// prints each saved memory as it arrives. With -post, lines typed on stdin
// are saved as new memories.
//
// Run: reverie-tail -server http://localhost:8000 [-post] [-tags a,b]
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vinayprograms/reverie/bus"
)

func main() {
	server := flag.String("server", "http://localhost:8000", "reverie server base URL")
	post := flag.Bool("post", false, "save each stdin line as a memory")
	tags := flag.String("tags", "", "comma-separated tags for posted lines")
	emotion := flag.String("emotion", "", "emotion for posted lines")
	flag.Parse()

	wsURL, err := feedURL(*server)
	if err != nil {
		log.Fatalf("Invalid server URL: %v", err)
	}

	fmt.Printf("Connecting to %s...\n", wsURL)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := follow(conn, os.Stdout); err != nil {
			log.Printf("Read error: %v", err)
		}
	}()

	inputCh := make(chan string)
	if *post {
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				inputCh <- scanner.Text()
			}
			close(inputCh)
		}()
	}

	poster := &poster{
		base:    strings.TrimRight(*server, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		tags:    splitTags(*tags),
		emotion: *emotion,
	}

	for {
		select {
		case <-sigCh:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case <-done:
			fmt.Println("Connection closed by server")
			return
		case line, ok := <-inputCh:
			if !ok {
				inputCh = nil
				continue
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := poster.save(line); err != nil {
				log.Printf("Save failed: %v", err)
			}
		}
	}
}

// feedURL turns an http(s) base URL into the ws(s) feed endpoint.
func feedURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// follow prints events from conn until the connection closes. A normal or
// going-away close is not an error.
func follow(conn *websocket.Conn, out io.Writer) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		ev, err := bus.DecodeMemorySaved(data)
		if err != nil {
			continue
		}
		fmt.Fprintln(out, formatEvent(ev))
	}
}

func formatEvent(ev bus.MemorySaved) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", ev.Key, ev.Record.Prompt)
	if ev.Record.Emotion != "" {
		fmt.Fprintf(&b, " (%s)", ev.Record.Emotion)
	}
	if len(ev.Record.Tags) > 0 {
		fmt.Fprintf(&b, " #%s", strings.Join(ev.Record.Tags, " #"))
	}
	return b.String()
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

type poster struct {
	base    string
	client  *http.Client
	tags    []string
	emotion string
}

func (p *poster) save(prompt string) error {
	body := map[string]interface{}{"prompt": prompt, "tags": p.tags}
	if p.emotion != "" {
		body["emotion"] = p.emotion
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := p.client.Post(p.base+"/action", "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	return nil
}
