package api_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Compunnel-EAB/copilot-metrics-viewer/internal/api"
	"github.com/Compunnel-EAB/copilot-metrics-viewer/internal/copilot"
)

type stubSource struct {
	payload    []byte
	payloadErr error
	seats      []copilot.Seat
	seatsErr   error
}

func (s *stubSource) Metrics() ([]byte, error) { return s.payload, s.payloadErr }

func (s *stubSource) Seats() ([]copilot.Seat, error) { return s.seats, s.seatsErr }

const stubPayload = `[
  {"day": "2024-01-01", "total_suggestions_count": 100, "total_acceptances_count": 40, "total_active_users": 7,
   "breakdown": [
     {"language": "python", "editor": "vscode", "suggestions_count": 60, "acceptances_count": 30},
     {"language": "go", "editor": "vscode", "suggestions_count": 40, "acceptances_count": 10}
   ]},
  {"day": "2024-01-02", "total_suggestions_count": 50, "total_acceptances_count": 10, "total_active_users": 4,
   "breakdown": [
     {"language": "go", "editor": "neovim", "suggestions_count": 50, "acceptances_count": 10}
   ]}
]`

func newTestApp(source api.Source) *fiber.App {
	app := fiber.New()
	api.NewServer(source, copilot.ScopeOrganization, 14, zap.NewNop()).Register(app)
	return app
}

func doRequest(t *testing.T, app *fiber.App, url string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(&stubSource{payload: []byte(stubPayload)})
	status, body := doRequest(t, app, "/api/metrics")
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Scope   string                  `json:"scope"`
		Records []copilot.MetricsRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "organization", resp.Scope)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "2024-01-01", resp.Records[0].Date)
	assert.Equal(t, 100, resp.Records[0].TotalSuggestions)
}

func TestMetricsEndpoint_ValidationFailure(t *testing.T) {
	payload := `[{"day": "2024-01-01", "total_suggestions_count": -5, "total_acceptances_count": 0, "total_active_users": 0}]`
	app := newTestApp(&stubSource{payload: []byte(payload)})

	status, body := doRequest(t, app, "/api/metrics")
	require.Equal(t, http.StatusBadGateway, status)

	var resp struct {
		Error        string              `json:"error"`
		Unrecognized bool                `json:"unrecognized"`
		Violations   []copilot.Violation `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "unexpected data from provider", resp.Error)
	assert.False(t, resp.Unrecognized)
	require.Len(t, resp.Violations, 1)
	assert.Equal(t, "$[0].total_suggestions_count", resp.Violations[0].Path)
}

func TestMetricsEndpoint_UnrecognizedSchema(t *testing.T) {
	app := newTestApp(&stubSource{payload: []byte(`{"totally": "different"}`)})

	status, body := doRequest(t, app, "/api/metrics")
	require.Equal(t, http.StatusBadGateway, status)

	var resp struct {
		Unrecognized bool `json:"unrecognized"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.True(t, resp.Unrecognized)
}

func TestMetricsEndpoint_SourceFailure(t *testing.T) {
	app := newTestApp(&stubSource{payloadErr: errors.New("boom")})
	status, body := doRequest(t, app, "/api/metrics")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.NotContains(t, string(body), "boom")
}

func TestBreakdownEndpoint(t *testing.T) {
	app := newTestApp(&stubSource{payload: []byte(stubPayload)})
	status, body := doRequest(t, app, "/api/breakdown/language")
	require.Equal(t, http.StatusOK, status)

	var b copilot.Breakdown
	require.NoError(t, json.Unmarshal(body, &b))
	assert.Equal(t, copilot.DimensionLanguage, b.Dimension)
	require.Len(t, b.Entries, 2)
	assert.Equal(t, "go", b.Entries[0].Key)
	assert.Equal(t, 90, b.Entries[0].Suggestions)
	assert.Equal(t, "python", b.Entries[1].Key)
	assert.Equal(t, 150, b.TotalSuggestions)
	assert.Equal(t, 7, b.ActiveUsers)
}

func TestBreakdownEndpoint_DateFilter(t *testing.T) {
	app := newTestApp(&stubSource{payload: []byte(stubPayload)})
	status, body := doRequest(t, app, "/api/breakdown/editor?from=2024-01-02&to=2024-01-02")
	require.Equal(t, http.StatusOK, status)

	var b copilot.Breakdown
	require.NoError(t, json.Unmarshal(body, &b))
	require.Len(t, b.Entries, 1)
	assert.Equal(t, "neovim", b.Entries[0].Key)
	assert.Equal(t, 50, b.TotalSuggestions)
}

func TestBreakdownEndpoint_BadRequests(t *testing.T) {
	app := newTestApp(&stubSource{payload: []byte(stubPayload)})
	cases := []struct {
		name string
		url  string
	}{
		{"unknown dimension", "/api/breakdown/flavor"},
		{"bad date", "/api/breakdown/language?from=01-02-2024"},
		{"inverted range", "/api/breakdown/language?from=2024-01-05&to=2024-01-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := doRequest(t, app, tc.url)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
}

func TestSeatsEndpoint(t *testing.T) {
	recent := time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC)
	stale := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	app := newTestApp(&stubSource{seats: []copilot.Seat{
		{Login: "octocat", LastActivityAt: &recent},
		{Login: "hubot", LastActivityAt: &stale},
		{Login: "ghost"},
	}})

	status, body := doRequest(t, app, "/api/seats?as_of=2024-02-01")
	require.Equal(t, http.StatusOK, status)

	var summary copilot.SeatSummary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 3, summary.TotalSeats)
	assert.Equal(t, 1, summary.ActiveSeats)
	assert.Equal(t, 2, summary.InactiveSeats)
	assert.Equal(t, []string{"ghost"}, summary.NeverUsed)
}

func TestSeatsEndpoint_BadAsOf(t *testing.T) {
	app := newTestApp(&stubSource{})
	status, _ := doRequest(t, app, "/api/seats?as_of=yesterday")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSeatsEndpoint_SourceFailure(t *testing.T) {
	app := newTestApp(&stubSource{seatsErr: errors.New("boom")})
	status, _ := doRequest(t, app, "/api/seats")
	assert.Equal(t, http.StatusBadGateway, status)
}
