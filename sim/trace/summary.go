package trace

// TraceSummary aggregates statistics from one or more ExchangeTraces.
type TraceSummary struct {
	TotalExchanges  int
	TotalSent       int
	TotalReceived   int
	TotalRelevant   int
	TotalForwarded  int
	OverlappedCount int
	MeanPolls       float64
	MaxPolls        int
	ReceivedP50     float64     // median records gathered per exchange
	ReceivedP99     float64     // 99th percentile of the same
	RelevantFrac    float64     // relevant / received; 0 when nothing was received
	SentByRank      map[int]int // rank → records contributed
}

// Summarize computes aggregate statistics from a set of ExchangeTraces.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(traces ...*ExchangeTrace) *TraceSummary {
	summary := &TraceSummary{
		SentByRank: make(map[int]int),
	}
	var polls, received []int
	for _, et := range traces {
		if et == nil {
			continue
		}
		for _, r := range et.Exchanges {
			summary.TotalExchanges++
			summary.TotalSent += r.Sent
			summary.TotalReceived += r.Received
			summary.TotalRelevant += r.Relevant
			summary.TotalForwarded += r.Forwarded
			summary.SentByRank[et.Rank] += r.Sent
			if r.Overlapped {
				summary.OverlappedCount++
			}
			polls = append(polls, r.Polls)
			received = append(received, r.Received)
			if r.Polls > summary.MaxPolls {
				summary.MaxPolls = r.Polls
			}
		}
	}

	summary.MeanPolls = CalculateMean(polls)
	summary.ReceivedP50 = CalculatePercentile(received, 50)
	summary.ReceivedP99 = CalculatePercentile(received, 99)
	if summary.TotalReceived > 0 {
		summary.RelevantFrac = float64(summary.TotalRelevant) / float64(summary.TotalReceived)
	}

	return summary
}
