// Package report persists finished runs: a JSON summary for humans and
// scripts, and a SQLite store for comparing runs over time.
package report

import (
	"fmt"
	"io"

	"github.com/sugawarayuuta/sonnet"

	"github.com/neuromapp/eventpassing/sim"
	"github.com/neuromapp/eventpassing/sim/trace"
)

// Summary describes one finished multi-rank run.
type Summary struct {
	Label     string         `json:"label,omitempty"`
	NumRanks  int            `json:"num_ranks"`
	NumGroups int            `json:"num_groups"`
	MinDelay  int64          `json:"min_delay"`
	SimTime   int64          `json:"sim_time"`
	Protocol  string         `json:"protocol"`
	Queue     string         `json:"queue"`
	Generator string         `json:"generator"`
	Seed      int64          `json:"seed"`
	Aggregate sim.RunStats   `json:"aggregate"`
	Ranks     []sim.RunStats `json:"ranks"`
	Trace     *TraceReport   `json:"trace,omitempty"`
}

// TraceReport is the exchange trace summary as written to JSON.
type TraceReport struct {
	Exchanges    int     `json:"exchanges"`
	Sent         int     `json:"sent"`
	Received     int     `json:"received"`
	Relevant     int     `json:"relevant"`
	Forwarded    int     `json:"forwarded"`
	Overlapped   int     `json:"overlapped"`
	MeanPolls    float64 `json:"mean_polls"`
	MaxPolls     int     `json:"max_polls"`
	ReceivedP50  float64 `json:"received_p50"`
	ReceivedP99  float64 `json:"received_p99"`
	RelevantFrac float64 `json:"relevant_frac"`
}

// NewTraceReport converts a trace summary. Returns nil for a nil summary or
// one with no exchanges.
func NewTraceReport(ts *trace.TraceSummary) *TraceReport {
	if ts == nil || ts.TotalExchanges == 0 {
		return nil
	}
	return &TraceReport{
		Exchanges:    ts.TotalExchanges,
		Sent:         ts.TotalSent,
		Received:     ts.TotalReceived,
		Relevant:     ts.TotalRelevant,
		Forwarded:    ts.TotalForwarded,
		Overlapped:   ts.OverlappedCount,
		MeanPolls:    ts.MeanPolls,
		MaxPolls:     ts.MaxPolls,
		ReceivedP50:  ts.ReceivedP50,
		ReceivedP99:  ts.ReceivedP99,
		RelevantFrac: ts.RelevantFrac,
	}
}

// SetRanks copies the per-rank stats into the summary.
func (s *Summary) SetRanks(ranks []*sim.RunStats) {
	s.Ranks = make([]sim.RunStats, len(ranks))
	for i, r := range ranks {
		s.Ranks[i] = *r
	}
}

// WriteJSON writes s as one JSON document followed by a newline.
func WriteJSON(w io.Writer, s *Summary) error {
	data, err := sonnet.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// ReadJSON reads a summary written by WriteJSON.
func ReadJSON(r io.Reader) (*Summary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	var s Summary
	if err := sonnet.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding summary: %w", err)
	}
	return &s, nil
}
