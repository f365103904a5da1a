package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/neuromapp/eventpassing/sim/cluster"
	"github.com/neuromapp/eventpassing/sim/report"
	"github.com/neuromapp/eventpassing/sim/trace"
)

// buildSummary collects the run description and results for JSON and the
// stats store.
func buildSummary(rf RunFile, cs *cluster.ClusterSimulator) *report.Summary {
	s := &report.Summary{
		Label:     label,
		NumRanks:  rf.Ranks,
		NumGroups: rf.Run.Groups,
		MinDelay:  rf.Run.MinDelay,
		SimTime:   rf.Run.SimTime,
		Protocol:  orDefault(rf.Run.Protocol, "blocking"),
		Queue:     orDefault(rf.Run.Queue, "heap"),
		Generator: orDefault(rf.Workload.Generator, "uniform"),
		Seed:      rf.Seed,
		Aggregate: *cs.AggregatedStats(),
		Trace:     report.NewTraceReport(trace.Summarize(cs.Traces()...)),
	}
	s.SetRanks(cs.RankStats())
	return s
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func printTraceSummary(w io.Writer, tr *report.TraceReport) {
	fmt.Fprintln(w, "=== Exchange Trace ===")
	fmt.Fprintf(w, "Exchanges            : %d\n", tr.Exchanges)
	fmt.Fprintf(w, "Records Sent         : %d\n", tr.Sent)
	fmt.Fprintf(w, "Records Received     : %d\n", tr.Received)
	fmt.Fprintf(w, "Received (p50 / p99) : %.1f / %.1f\n", tr.ReceivedP50, tr.ReceivedP99)
	fmt.Fprintf(w, "Relevant Fraction    : %.4f\n", tr.RelevantFrac)
	fmt.Fprintf(w, "Overlapped Exchanges : %d\n", tr.Overlapped)
	fmt.Fprintf(w, "Polls (mean / max)   : %.2f / %d\n", tr.MeanPolls, tr.MaxPolls)
}

// writeSummary writes s to path, or to stdout when path is "-".
func writeSummary(path string, s *report.Summary) error {
	if path == "-" {
		return report.WriteJSON(os.Stdout, s)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating summary file: %w", err)
	}
	if err := report.WriteJSON(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// saveSummary appends s to the SQLite store at path and returns the run id.
func saveSummary(ctx context.Context, path string, s *report.Summary) (int64, error) {
	st, err := report.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening stats db: %w", err)
	}
	defer st.Close()
	rec := &report.RunRecord{Summary: *s}
	if err := st.SaveRun(ctx, rec); err != nil {
		return 0, fmt.Errorf("saving run: %w", err)
	}
	return rec.ID, nil
}
