package trace

// TraceLevel controls the verbosity of exchange tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelExchange captures one record per spike exchange.
	TraceLevelExchange TraceLevel = "exchange"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:     true,
	TraceLevelExchange: true,
	"":                 true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// ExchangeTrace collects exchange records for one rank.
type ExchangeTrace struct {
	Config    TraceConfig
	Rank      int
	Exchanges []ExchangeRecord
}

// NewExchangeTrace creates an ExchangeTrace ready for recording.
func NewExchangeTrace(config TraceConfig, rank int) *ExchangeTrace {
	return &ExchangeTrace{
		Config:    config,
		Rank:      rank,
		Exchanges: make([]ExchangeRecord, 0),
	}
}

// Enabled reports whether records should be captured. Safe on nil.
func (et *ExchangeTrace) Enabled() bool {
	return et != nil && et.Config.Level == TraceLevelExchange
}

// RecordExchange appends an exchange record.
func (et *ExchangeTrace) RecordExchange(record ExchangeRecord) {
	et.Exchanges = append(et.Exchanges, record)
}
