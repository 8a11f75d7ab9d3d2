package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shmor3/library/pkg/library"
	"github.com/shmor3/library/pkg/librarylog"
	"github.com/shmor3/library/pkg/stacks"
	"github.com/shmor3/library/pkg/volume"
)

var (
	dataPath string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "library",
	Short: "CLI for the semantic library store",
	Long:  `A command-line interface for adding, searching, and dumping a library of embedded text volumes.`,
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a volume with a raw vector",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		vectorStr, _ := cmd.Flags().GetString("vector")
		metadataStr, _ := cmd.Flags().GetString("metadata")
		if text == "" {
			return fmt.Errorf("--text is required")
		}

		vector, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		metadata, err := parseMetadata(metadataStr)
		if err != nil {
			return err
		}

		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Dispose()

		ctx := context.Background()
		lib.SetEmbeddingProvider(func(context.Context, string) ([]float32, error) { return vector, nil })
		id, err := lib.Add(ctx, text, metadata)
		if err != nil {
			return fmt.Errorf("add failed: %w", err)
		}
		fmt.Printf("added volume %s\n", id)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search by raw query vector",
	RunE: func(cmd *cobra.Command, args []string) error {
		vectorStr, _ := cmd.Flags().GetString("vector")
		maxResults, _ := cmd.Flags().GetInt("max-results")
		threshold, _ := cmd.Flags().GetFloat64("threshold")

		vector, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Dispose()

		results := lib.Stacks().Search(vector, maxResults, threshold)
		for _, r := range results {
			fmt.Printf("%.4f\t%s\t%s\n", r.Score, r.Volume.ID, truncate(r.Volume.Text, 80))
		}
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump every volume as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Dispose()

		out, err := json.MarshalIndent(lib.Stacks().GetAll(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <path>",
	Short: "Write a standalone copy of the store to path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Dispose()

		if err := lib.Stacks().DumpToFile(args[0]); err != nil {
			return fmt.Errorf("snapshot failed: %w", err)
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <path>",
	Short: "Replace the store's contents with a snapshot from path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Dispose()

		if err := lib.Stacks().LoadFromFile(args[0]); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		return nil
	},
}

func openLibrary() (*library.Library, error) {
	cfg := library.Config{
		Stacks: stacks.Config{
			Path:             dataPath,
			AutosaveDebounce: stacks.DefaultConfig().AutosaveDebounce,
			DedupThreshold:   stacks.DefaultConfig().DedupThreshold,
			Logger:           logger(),
		},
	}
	lib := library.New(cfg)
	if err := lib.Load(); err != nil {
		return nil, fmt.Errorf("load failed: %w", err)
	}
	return lib, nil
}

func logger() librarylog.Logger {
	if verbose {
		return librarylog.NewStd(librarylog.LevelDebug)
	}
	return librarylog.Nop()
}

func parseVector(s string) ([]float32, error) {
	if s == "" {
		return nil, fmt.Errorf("--vector is required")
	}
	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		vec = append(vec, float32(v))
	}
	return vec, nil
}

func parseMetadata(s string) (volume.Metadata, error) {
	if s == "" {
		return volume.Metadata{}, nil
	}
	var m volume.Metadata
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("invalid metadata JSON: %w", err)
	}
	return m, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "library.json", "path to the persisted library document")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	addCmd.Flags().String("text", "", "volume text")
	addCmd.Flags().String("vector", "", "comma-separated embedding components")
	addCmd.Flags().String("metadata", "", "metadata as a JSON object")

	searchCmd.Flags().String("vector", "", "comma-separated query embedding components")
	searchCmd.Flags().Int("max-results", 10, "maximum results to return")
	searchCmd.Flags().Float64("threshold", 0, "minimum cosine similarity")

	rootCmd.AddCommand(addCmd, searchCmd, dumpCmd, snapshotCmd, restoreCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
