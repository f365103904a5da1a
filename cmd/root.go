package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/neuromapp/eventpassing/sim/cluster"
	"github.com/neuromapp/eventpassing/sim/queue"
	"github.com/neuromapp/eventpassing/sim/spike"
	"github.com/neuromapp/eventpassing/sim/trace"
	"github.com/neuromapp/eventpassing/sim/workload"
)

var (
	// CLI flags for the world and the engine
	seed          int64   // Seed for topology and event generation
	numRanks      int     // Number of in-process ranks
	numGroups     int     // Cell groups per rank
	simTime       int64   // Simulated time (in ticks)
	minDelay      int64   // Epoch length (in ticks)
	eventsPerStep int     // Max events released per group per tick
	algebra       bool    // Run the per-tick compute hooks
	threaded      bool    // One goroutine per group
	protocol      string  // Spike exchange protocol
	queueBackend  string  // Event queue backend
	binWidth      float64 // Bin queue quantum width
	numBins       int     // Bin queue initial ring size
	traceLevel    string  // Exchange trace level

	// CLI flags for the workload and topology
	generator     string // Event generator
	eventsPerTick int    // Uniform: events per group per tick
	percentSpike  int    // Uniform: percentage of spikes
	percentITE    int    // Uniform: percentage of inter-thread events
	numSpikes     int    // Poisson: expected spikes over the world
	numOut        int    // Output gids per rank
	numIn         int    // Input gids per rank
	netconsPer    int    // Local groups per input gid

	// CLI flags for configuration and output
	configPath string // YAML run file
	preset     string // Built-in preset name
	statsDB    string // SQLite database to append the run to
	jsonPath   string // JSON summary path ("-" for stdout)
	label      string // Label stored with the run
	logLevel   string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "eventpassing",
	Short: "Epoch-driven event-passing and spike-exchange simulator",
}

// runCmd executes a multi-rank simulation using the preset, config file and flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an in-process multi-rank simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		rf, err := resolveRunFile(preset, configPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		applyFlagOverrides(&rf, cmd.Flags().Changed)
		if err := rf.Validate(); err != nil {
			logrus.Fatalf("%v", err)
		}

		logrus.Infof("Starting simulation: %d ranks x %d groups, sim time %d, min delay %d, %s exchange, %s queue",
			rf.Ranks, rf.Run.Groups, rf.Run.SimTime, rf.Run.MinDelay, rf.Run.Protocol, rf.Run.Queue)
		startTime := time.Now()

		cs, err := cluster.NewClusterSimulator(rf.Deployment())
		if err != nil {
			logrus.Fatalf("Failed to build simulation: %v", err)
		}
		if err := cs.Run(); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		agg := cs.AggregatedStats()
		agg.Print(fmt.Sprintf("Simulation Metrics (%d ranks)", rf.Ranks))
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			for _, st := range cs.RankStats() {
				st.Print(fmt.Sprintf("Rank %d", st.Rank))
			}
		}
		fmt.Printf("Wall time            : %v\n", time.Since(startTime).Round(time.Millisecond))

		summary := buildSummary(rf, cs)
		if summary.Trace != nil {
			printTraceSummary(os.Stdout, summary.Trace)
		}
		if jsonPath != "" {
			if err := writeSummary(jsonPath, summary); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		if statsDB != "" {
			id, err := saveSummary(context.Background(), statsDB, summary)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			logrus.Infof("Saved run %d to %s", id, statsDB)
		}

		logrus.Info("Simulation complete.")
	},
}

// backendsCmd lists the pluggable components
var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List queue backends, exchange protocols, generators and presets",
	Run: func(cmd *cobra.Command, args []string) {
		names, err := presetNames()
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		printBackends(cmd.OutOrStdout(), names)
	},
}

func printBackends(w io.Writer, presets []string) {
	fmt.Fprintf(w, "queues:     %s\n", strings.Join(queue.ValidBackendNames(), ", "))
	fmt.Fprintf(w, "protocols:  %s\n", strings.Join(spike.ValidProtocolNames(), ", "))
	fmt.Fprintf(w, "generators: %s, %s\n", workload.GeneratorUniform, workload.GeneratorPoisson)
	fmt.Fprintf(w, "traces:     %s, %s\n", trace.TraceLevelNone, trace.TraceLevelExchange)
	fmt.Fprintf(w, "presets:    %s\n", strings.Join(presets, ", "))
}

// applyFlagOverrides copies every explicitly set flag into rf. Flags left at
// their defaults never override the preset or config file.
func applyFlagOverrides(rf *RunFile, changed func(name string) bool) {
	if changed("seed") {
		rf.Seed = seed
	}
	if changed("ranks") {
		rf.Ranks = numRanks
	}
	if changed("groups") {
		rf.Run.Groups = numGroups
	}
	if changed("simtime") {
		rf.Run.SimTime = simTime
	}
	if changed("min-delay") {
		rf.Run.MinDelay = minDelay
	}
	if changed("events-per-step") {
		rf.Run.EventsPerStep = eventsPerStep
	}
	if changed("algebra") {
		rf.Run.Algebra = algebra
	}
	if changed("threaded") {
		rf.Run.Threaded = threaded
	}
	if changed("protocol") {
		rf.Run.Protocol = protocol
	}
	if changed("queue") {
		rf.Run.Queue = queueBackend
	}
	if changed("bin-width") {
		rf.Run.BinWidth = binWidth
	}
	if changed("bins") {
		rf.Run.NumBins = numBins
	}
	if changed("trace") {
		rf.Run.Trace = traceLevel
	}
	if changed("generator") {
		rf.Workload.Generator = generator
	}
	if changed("events-per-tick") {
		rf.Workload.EventsPerTick = eventsPerTick
	}
	if changed("percent-spike") {
		rf.Workload.PercentSpike = percentSpike
	}
	if changed("percent-ite") {
		rf.Workload.PercentITE = percentITE
	}
	if changed("num-spikes") {
		rf.Workload.NumSpikes = numSpikes
	}
	if changed("nout") {
		rf.Workload.NumOut = numOut
	}
	if changed("nin") {
		rf.Workload.NumIn = numIn
	}
	if changed("netcons-per") {
		rf.Workload.NetconsPer = netconsPer
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for topology and event generation")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML run file applied on top of the preset")
	runCmd.Flags().StringVar(&preset, "preset", defaultPreset, "Built-in preset (see 'backends')")

	// World and engine
	runCmd.Flags().IntVar(&numRanks, "ranks", 4, "Number of in-process ranks")
	runCmd.Flags().IntVar(&numGroups, "groups", 8, "Cell groups per rank")
	runCmd.Flags().Int64Var(&simTime, "simtime", 100, "Simulated time (in ticks)")
	runCmd.Flags().Int64Var(&minDelay, "min-delay", 5, "Minimum network delay; one epoch (in ticks)")
	runCmd.Flags().IntVar(&eventsPerStep, "events-per-step", 16, "Max events released per group per tick")
	runCmd.Flags().BoolVar(&algebra, "algebra", true, "Run the per-tick compute hooks")
	runCmd.Flags().BoolVar(&threaded, "threaded", false, "Run each group on its own goroutine")
	runCmd.Flags().StringVar(&protocol, "protocol", spike.ProtocolBlocking, "Spike exchange protocol: blocking, nonblocking")
	runCmd.Flags().StringVar(&queueBackend, "queue", queue.BackendHeap, "Event queue backend: heap, splay, binq")
	runCmd.Flags().Float64Var(&binWidth, "bin-width", 0, "Bin queue quantum width in ticks (0 = default)")
	runCmd.Flags().IntVar(&numBins, "bins", 0, "Bin queue initial number of bins (0 = default)")
	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Exchange trace level: none, exchange")

	// Workload and topology
	runCmd.Flags().StringVar(&generator, "generator", workload.GeneratorUniform, "Event generator: uniform, poisson")
	runCmd.Flags().IntVar(&eventsPerTick, "events-per-tick", 2, "Uniform: events per group per tick")
	runCmd.Flags().IntVar(&percentSpike, "percent-spike", 10, "Uniform: percentage of events that are spikes")
	runCmd.Flags().IntVar(&percentITE, "percent-ite", 30, "Uniform: percentage of events that are inter-thread")
	runCmd.Flags().IntVar(&numSpikes, "num-spikes", 0, "Poisson: expected spikes over all ranks")
	runCmd.Flags().IntVar(&numOut, "nout", 4, "Output gids per rank")
	runCmd.Flags().IntVar(&numIn, "nin", 12, "Input gids per rank, drawn from the other ranks' outputs")
	runCmd.Flags().IntVar(&netconsPer, "netcons-per", 5, "Local groups each input gid connects to")

	// Output
	runCmd.Flags().StringVar(&statsDB, "stats-db", "", "SQLite database to append the run to")
	runCmd.Flags().StringVar(&jsonPath, "json", "", "Write a JSON summary to this path ('-' for stdout)")
	runCmd.Flags().StringVar(&label, "label", "", "Label stored with the run")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(backendsCmd)
}
