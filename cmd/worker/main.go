package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/address-normalizer/app/config"
	"github.com/address-normalizer/app/models"
	"github.com/address-normalizer/internal/expand"
	"github.com/address-normalizer/internal/external"
	"github.com/address-normalizer/internal/parser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		inPath  string
		outPath string
		workers int
	)

	rootCmd := &cobra.Command{
		Use:   "worker",
		Short: "Batch address normalization",
		Long: "Reads one raw address per line, normalizes concurrently, and writes " +
			"one NDJSON result per line in input order.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(inPath, outPath, workers)
		},
	}

	rootCmd.Flags().StringVarP(&inPath, "in", "i", "", "input file with one address per line (default stdin)")
	rootCmd.Flags().StringVarP(&outPath, "out", "o", "", "output NDJSON file (default stdout)")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 8, "concurrent normalization workers")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBatch(inPath, outPath string, workers int) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := config.Load("config/parser.yaml"); err != nil {
		logger.Warn("Using built-in parser tuning", zap.Error(err))
	}

	table, err := expand.NewTable()
	if err != nil {
		return fmt.Errorf("load abbreviation table: %w", err)
	}
	states, err := expand.NewStates()
	if err != nil {
		return fmt.Errorf("load state table: %w", err)
	}

	pipe := parser.NewPipeline(external.NewTokenClassifier(), table, states, logger)
	pipe.ApplyTuning(parser.Tuning{
		ThresholdHigh:    config.C.Thresholds.High,
		ThresholdReview:  config.C.Thresholds.ReviewLow,
		StateMatchCutoff: config.C.Matching.StateCutoff,
	})

	addresses, err := readAddresses(inPath)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		logger.Warn("No addresses to process")
		return nil
	}

	start := time.Now()
	results := make([]*models.NormalizationResult, len(addresses))

	if workers <= 0 {
		workers = 8
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, address := range addresses {
		i, address := i, address
		g.Go(func() error {
			itemStart := time.Now()
			res := pipe.NormalizeAddress(address)
			results[i] = models.NewNormalizationResult(res, time.Since(itemStart))
			return nil
		})
	}
	g.Wait()

	if err := writeResults(outPath, results); err != nil {
		return err
	}

	normalized := 0
	for _, result := range results {
		if result.Status == string(parser.StatusNormalized) {
			normalized++
		}
	}
	logger.Info("Batch complete",
		zap.Int("total", len(results)),
		zap.Int("normalized", normalized),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// readAddresses loads one raw address per line, skipping blank lines.
func readAddresses(inPath string) ([]string, error) {
	var reader io.Reader = os.Stdin
	if inPath != "" {
		file, err := os.Open(inPath)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		reader = file
	}

	var addresses []string
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		addresses = append(addresses, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return addresses, nil
}

// writeResults emits one JSON document per line in input order.
func writeResults(outPath string, results []*models.NormalizationResult) error {
	var out io.Writer = os.Stdout
	if outPath != "" {
		file, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		out = file
	}

	writer := bufio.NewWriter(out)
	encoder := json.NewEncoder(writer)
	for _, result := range results {
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}
	return writer.Flush()
}
