package github

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Compunnel-EAB/copilot-metrics-viewer/internal/copilot"
)

const localMetricsFile = "metrics.json"
const localSeatsFile = "seats.json"

// LocalSource substitutes fixture files for live GitHub responses. Downstream
// the payload is indistinguishable from a provider response: it still goes
// through validation and normalization.
type LocalSource struct {
	dir string
}

func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{dir: dir}
}

func (s *LocalSource) Metrics() ([]byte, error) {
	payload, err := os.ReadFile(filepath.Join(s.dir, localMetricsFile))
	if err != nil {
		return nil, fmt.Errorf("reading metrics fixture: %w", err)
	}
	return payload, nil
}

// Seats reads a seats fixture in the GitHub billing seats response shape.
// A missing file means no seats, not an error.
func (s *LocalSource) Seats() ([]copilot.Seat, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, localSeatsFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading seats fixture: %w", err)
	}

	var resp seatsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding seats fixture: %w", err)
	}

	seats := make([]copilot.Seat, 0, len(resp.Seats))
	for _, item := range resp.Seats {
		seats = append(seats, toSeat(item))
	}
	return seats, nil
}
