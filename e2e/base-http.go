package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// BaseHTTPSuite drives a running relay through its public HTTP and websocket surfaces.
type BaseHTTPSuite struct {
	suite.Suite
	Config Config
	client *http.Client
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayURL == "" {
		s.T().Skip("RELAY_URL is not set, skipping end-to-end scenarios")
	}
	s.client = &http.Client{Timeout: 10 * time.Second}
}

func (s *BaseHTTPSuite) Step(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// Call sends body as JSON and decodes the response into out when out is not nil.
// It returns the HTTP status.
func (s *BaseHTTPSuite) Call(method, path, token string, body, out any) int {
	var payload bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&payload).Encode(body))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r, err := http.NewRequestWithContext(ctx, method, s.Config.RelayURL+path, &payload)
	s.Require().NoError(err)
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(r)
	s.Require().NoError(err, "Failed to reach relay at "+s.Config.RelayURL)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	logBuilder := strings.Builder{}
	fmt.Fprintf(&logBuilder, "HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		fmt.Fprintf(&logBuilder, "\nREQUEST:\n%s", payload.String())
		fmt.Fprintf(&logBuilder, "RESPONSE:\n%s", raw)
	}
	s.T().Log(logBuilder.String())

	if out != nil && len(raw) > 0 && resp.StatusCode < http.StatusBadRequest {
		s.Require().NoError(json.Unmarshal(raw, out))
	}
	return resp.StatusCode
}

// Dial opens the websocket of the user owning token.
func (s *BaseHTTPSuite) Dial(token string) *ws.Conn {
	u, err := url.Parse(s.Config.RelayURL)
	s.Require().NoError(err)
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"
	u.RawQuery = url.Values{"access_token": {token}}.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Expect reads frames until one named event arrives.
func (s *BaseHTTPSuite) Expect(conn *ws.Conn, event string) json.RawMessage {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	for {
		var f frame
		s.Require().NoError(conn.ReadJSON(&f), "waiting for "+event)
		if f.Event == event {
			return f.Payload
		}
	}
}

// ExpectAll reads frames until every named event arrived, in any order.
func (s *BaseHTTPSuite) ExpectAll(conn *ws.Conn, events ...string) map[string]json.RawMessage {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	received := make(map[string]json.RawMessage, len(events))
	for len(received) < len(events) {
		var f frame
		s.Require().NoError(conn.ReadJSON(&f), fmt.Sprintf("waiting for %v", events))
		for _, event := range events {
			if f.Event == event {
				received[event] = f.Payload
			}
		}
	}
	return received
}
