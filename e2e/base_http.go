package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

// BaseHTTPSuite drives a running server over its public REST surface.
// SERVER_ADDR selects the target; without it the suite skips itself.
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

	if s.Config.ServerAddr == "" {
		s.T().Skip("SERVER_ADDR not set, skipping e2e suite")
	}
	s.client = &http.Client{Timeout: 30 * time.Second}
}

// Step prints a colorized header so the flow reads top to bottom in logs
func (s *BaseHTTPSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Do sends one JSON request and decodes the JSON response body. A non-nil
// payload is marshaled; a bearer token is attached when provided.
func (s *BaseHTTPSuite) Do(method, path, token string, payload any) (int, map[string]any) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		s.Require().NoError(err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.Config.ServerAddr+path, body)
	s.Require().NoError(err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	s.Require().NoError(err, "Failed to reach server at "+s.Config.ServerAddr)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	logBuilder := strings.Builder{}
	fmt.Fprintf(&logBuilder, "HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		fmt.Fprintln(&logBuilder, "\nRESPONSE:")
		fmt.Fprintln(&logBuilder, string(raw))
	}
	s.T().Log(logBuilder.String())

	var decoded map[string]any
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &decoded), "response is not JSON: %s", raw)
	}
	return resp.StatusCode, decoded
}
