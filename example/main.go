package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/expki/beam"
	"github.com/expki/beam/ngram"
)

//go:embed corpus.txt
var embeddedCorpus string

var (
	corpusPath  string
	prompt      string
	promptFile  string
	strategy    string
	beamWidth   int
	maxDepth    int
	threshold   float32
	configPath  string
	compress    bool
	memoryLimit string
	top         int
	contextSize int
	timeout     int
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:           "beam",
	Short:         "Explore likely continuations of a prompt",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Train a bigram model and search its continuation tree",
	Example: `  beam search --prompt "the quick"
  beam search --corpus book.txt --prompt-file prompt.txt --strategy depth_first --beam-width 3
  beam search --config beam.yaml --compress --memory-limit 64MiB -v`,
	RunE: runSearch,
}

func init() {
	d := beam.DefaultConfig()
	f := searchCmd.Flags()
	f.StringVar(&corpusPath, "corpus", "", "path to a training corpus, one sequence per line (uses embedded corpus if not specified)")
	f.StringVarP(&prompt, "prompt", "p", "the quick", "prompt to continue")
	f.StringVar(&promptFile, "prompt-file", "", "read the prompt from a file")
	f.StringVar(&strategy, "strategy", d.Strategy, "search strategy: breadth_first or depth_first")
	f.IntVar(&beamWidth, "beam-width", d.BeamWidth, "candidates expanded per frame")
	f.IntVar(&maxDepth, "max-depth", d.MaxDepth, "deepest level a sequence may reach")
	f.Float32Var(&threshold, "threshold", d.Threshold, "breadth-first probability threshold")
	f.StringVar(&configPath, "config", "", "YAML or JSON search config (flags override it)")
	f.BoolVar(&compress, "compress", d.Compress, "store snapshots lz4-compressed")
	f.StringVar(&memoryLimit, "memory-limit", "", "cap on live snapshot memory, e.g. 256MiB")
	f.IntVar(&top, "top", 10, "ranked results to print (0 = all)")
	f.IntVarP(&contextSize, "context", "c", 512, "model context size in tokens")
	f.IntVar(&timeout, "timeout", 60, "search timeout in seconds")
	f.BoolVarP(&verbose, "verbose", "v", false, "log every candidate")

	rootCmd.AddCommand(searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := searchConfig(cmd)
	if err != nil {
		return err
	}

	text, err := promptText()
	if err != nil {
		return err
	}

	model, err := loadModel()
	if err != nil {
		return err
	}
	defer model.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	pos, err := beam.Prime(ctx, model, text, 1)
	if err != nil {
		return fmt.Errorf("prime prompt: %w", err)
	}

	opts := append(cfg.Options(), beam.WithLogger(logger))
	session, err := beam.NewSession(model, opts...)
	if err != nil {
		return err
	}
	defer session.Close()

	printHeader(model.Info(), cfg, text)

	searchErr := session.Run(ctx, cfg.SearchStrategy(), pos, text)
	switch {
	case searchErr == nil:
	case errors.Is(searchErr, context.Canceled), errors.Is(searchErr, context.DeadlineExceeded):
		fmt.Fprintln(os.Stderr, styles.Warning.Render("search interrupted, showing partial results"))
	case errors.Is(searchErr, beam.ErrEvaluationFailed) && !isFatal(searchErr):
		fmt.Fprintln(os.Stderr, styles.Warning.Render("some branches were abandoned: "+searchErr.Error()))
	default:
		return searchErr
	}

	printResults(session, top)
	printStats(session.Stats())
	return nil
}

// isFatal reports whether err holds anything besides abandoned branches.
func isFatal(err error) bool {
	return errors.Is(err, beam.ErrAllocation) ||
		errors.Is(err, beam.ErrStateSizeMismatch) ||
		errors.Is(err, beam.ErrSnapshotReleased)
}

// searchConfig layers explicit flags over the config file and BEAM_*
// variables.
func searchConfig(cmd *cobra.Command) (beam.Config, error) {
	cfg, err := beam.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("strategy") {
		cfg.Strategy = strategy
	}
	if flags.Changed("beam-width") {
		cfg.BeamWidth = beamWidth
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth = maxDepth
	}
	if flags.Changed("threshold") {
		cfg.Threshold = threshold
	}
	if flags.Changed("compress") {
		cfg.Compress = compress
	}
	if flags.Changed("memory-limit") {
		cfg.MemoryLimit = memoryLimit
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func promptText() (string, error) {
	if promptFile == "" {
		return prompt, nil
	}
	data, err := os.ReadFile(promptFile)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// loadModel trains on the corpus file, or on the embedded corpus when no
// path is given.
func loadModel() (*ngram.Model, error) {
	opts := []ngram.ModelOption{ngram.WithContextSize(contextSize)}
	if corpusPath != "" {
		return ngram.Load(corpusPath, opts...)
	}
	return ngram.Train(embeddedCorpus, opts...)
}
