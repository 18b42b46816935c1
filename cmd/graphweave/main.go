// Command graphweave builds knowledge graphs from seed entities and
// extracts sampled sub-graphs from them.
//
// Web search usage:
//
//	go run ./cmd/graphweave \
//	  --seed "quantum computing" --seed "graph theory" \
//	  --chat-provider openai --chat-model gpt-4o-mini \
//	  --samples 3 --method mixed
//
// Local corpus usage:
//
//	go run ./cmd/graphweave \
//	  --seed-file seeds.xlsx \
//	  --corpus-dir ./docs \
//	  --chat-provider ollama --chat-model llama3.1:8b
//
// Replay usage:
//
//	go run ./cmd/graphweave --replay runs/20260831_120000_quantum_computing
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/xuri/excelize/v2"

	graphweave "github.com/lcv-dev/graphweave"
)

// stringSlice implements flag.Value for multi-value string flags.
type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ", ") }
func (s *stringSlice) Set(val string) error {
	*s = append(*s, val)
	return nil
}

func main() {
	var seeds stringSlice

	var (
		seedFile     = flag.String("seed-file", "", "Path to a seed list (.txt, .csv, .xlsx; first column)")
		replayDir    = flag.String("replay", "", "Replay a run directory and print its graph instead of building")
		dbPath       = flag.String("db", "", "Path to SQLite database (default: ~/.graphweave/graphweave.db)")
		runsDir      = flag.String("runs-dir", "runs", "Directory for per-run extraction logs")
		chatProvider = flag.String("chat-provider", "ollama", "Chat LLM provider: ollama, openai, custom")
		chatModel    = flag.String("chat-model", "llama3.1:8b", "Chat model name")
		chatBaseURL  = flag.String("chat-base-url", "", "Chat provider base URL override")
		chatAPIKey   = flag.String("chat-api-key", "", "Chat provider API key (default: $OPENAI_API_KEY)")
		tavilyKey    = flag.String("tavily-key", "", "Tavily search API key (default: $TAVILY_API_KEY)")
		corpusDir    = flag.String("corpus-dir", "", "Local document directory used instead of web search")
		searchQPS    = flag.Float64("search-qps", 0, "Max text source queries per second (0 = unlimited)")
		maxIter      = flag.Int("max-iterations", 15, "Maximum expansion rounds per seed")
		maxRelations = flag.Int("max-relations", 30, "Stop a run once this many relations are accepted")
		maxPerRound  = flag.Int("max-relations-per-round", 15, "Relation cap per extraction round")
		workers      = flag.Int("workers", 4, "Seeds built in parallel")
		samples      = flag.Int("samples", 0, "Sub-graphs to sample per finished run")
		sampleSize   = flag.Int("sample-size", 8, "Nodes per sampled sub-graph")
		method       = flag.String("method", "mixed", "Sampling method: augmented_chain, community_core_path, dual_core_bridge, max_chain, mixed")
		randomSeed   = flag.Int64("random-seed", 0, "Seed for reproducible runs (0 = time-based)")
		verbose      = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Var(&seeds, "seed", "Seed entity to build a graph from (repeatable)")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *seedFile != "" {
		fromFile, err := loadSeeds(*seedFile)
		if err != nil {
			log.Fatalf("loading seed file: %v", err)
		}
		seeds = append(seeds, fromFile...)
	}
	if len(seeds) == 0 && *replayDir == "" {
		log.Fatal("no seeds given: use --seed, --seed-file, or --replay")
	}

	chatKey := *chatAPIKey
	if chatKey == "" && *chatProvider == "openai" {
		chatKey = os.Getenv("OPENAI_API_KEY")
	}
	searchKey := *tavilyKey
	if searchKey == "" {
		searchKey = os.Getenv("TAVILY_API_KEY")
	}
	if *corpusDir == "" && searchKey == "" && *replayDir == "" {
		log.Fatal("no text source: set --tavily-key ($TAVILY_API_KEY) or --corpus-dir")
	}

	cfg := graphweave.DefaultConfig()
	cfg.DBPath = *dbPath
	cfg.RunsDir = *runsDir
	cfg.Chat = graphweave.LLMConfig{
		Provider: *chatProvider,
		Model:    *chatModel,
		BaseURL:  *chatBaseURL,
		APIKey:   chatKey,
	}
	cfg.TavilyAPIKey = searchKey
	cfg.CorpusDir = *corpusDir
	cfg.SearchQPS = *searchQPS
	cfg.MaxIterations = *maxIter
	cfg.MaxRelations = *maxRelations
	cfg.MaxRelationsPerRound = *maxPerRound
	cfg.Workers = *workers
	cfg.SampleSize = *sampleSize
	cfg.RandomSeed = *randomSeed

	// Replay needs no text source or API keys; satisfy validation with a
	// placeholder when none is configured.
	if *replayDir != "" && cfg.TavilyAPIKey == "" && cfg.CorpusDir == "" {
		cfg.TavilyAPIKey = "replay"
	}

	engine, err := graphweave.New(cfg)
	if err != nil {
		log.Fatalf("creating engine: %v", err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *replayDir != "" {
		res, err := engine.Replay(ctx, *replayDir)
		if err != nil {
			log.Fatalf("replaying run: %v", err)
		}
		printJSON(res)
		return
	}

	outcomes := engine.BuildAll(ctx, seeds)

	failed := 0
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "seed %q failed: %v\n", out.Seed, out.Err)
			continue
		}
		fmt.Printf("run %d: seed=%q entities=%d relations=%d stop=%s dir=%s\n",
			out.Result.RunID, out.Seed,
			len(out.Result.Build.Entities), len(out.Result.Build.Relations),
			out.Result.Build.Stats.StopReason, out.Result.Dir)

		for i := 0; i < *samples; i++ {
			res, err := engine.Sample(ctx, out.Result.RunID, *method)
			if err != nil {
				fmt.Fprintf(os.Stderr, "sampling run %d: %v\n", out.Result.RunID, err)
				break
			}
			fmt.Printf("  sample %d: method=%s nodes=%d relations=%d complexity=%v\n",
				i+1, res.Method, len(res.Nodes), len(res.Relations),
				res.Topology["topology_complexity"])
		}
	}

	if failed > 0 {
		log.Fatalf("%d of %d seeds failed", failed, len(outcomes))
	}
}

// loadSeeds reads seed entities from a text, CSV, or XLSX file. The first
// column is used; blank lines and a "seed" header row are skipped.
func loadSeeds(path string) ([]string, error) {
	var raw []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = strings.Split(string(data), "\n")
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		rows, err := csv.NewReader(f).ReadAll()
		if err != nil {
			return nil, fmt.Errorf("parsing CSV: %w", err)
		}
		for _, row := range rows {
			if len(row) > 0 {
				raw = append(raw, row[0])
			}
		}
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("opening XLSX: %w", err)
		}
		defer f.Close()
		for _, sheet := range f.GetSheetList() {
			rows, err := f.GetRows(sheet)
			if err != nil {
				continue
			}
			for _, row := range rows {
				if len(row) > 0 {
					raw = append(raw, row[0])
				}
			}
		}
	default:
		return nil, fmt.Errorf("unsupported seed file format %q", filepath.Ext(path))
	}

	var seeds []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "seed") {
			continue
		}
		seeds = append(seeds, s)
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seeds found in %s", path)
	}
	return seeds, nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("encoding output: %v", err)
	}
}
