package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drivemind-labs/sceneloop/config"
	"github.com/drivemind-labs/sceneloop/core"
	"github.com/drivemind-labs/sceneloop/index/inmem"
)

var (
	scenesPath   string
	snapshotPath string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest reference scenes into the vector index snapshot",
	Long: `Read a JSON array of scenes and upsert their primary embeddings into the
reference index, then write the snapshot used by run. Scenes without
embeddings are skipped.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&scenesPath, "scenes", "", "path to a JSON array of scenes (required)")
	ingestCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "snapshot path, defaults to the configured one")
	_ = ingestCmd.MarkFlagRequired("scenes")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out := snapshotPath
	if out == "" {
		out = cfg.Index.SnapshotPath
	}
	if out == "" {
		return fmt.Errorf("no snapshot path configured, pass --snapshot")
	}

	b, err := os.ReadFile(scenesPath)
	if err != nil {
		return fmt.Errorf("read scenes: %w", err)
	}
	var scenes []core.Scene
	if err := json.Unmarshal(b, &scenes); err != nil {
		return fmt.Errorf("parse scenes %s: %w", scenesPath, err)
	}

	index := inmem.New(cfg.IndexName(), cfg.Index.Dimensions)
	if _, err := os.Stat(out); err == nil {
		if index, err = inmem.Load(out); err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
	}

	var records []inmem.Record
	skipped := 0
	for _, scene := range scenes {
		vec := scene.PrimaryEmbedding()
		if len(vec) == 0 {
			skipped++
			continue
		}
		records = append(records, inmem.Record{
			ID:        scene.ID,
			Embedding: vec,
			Metadata:  scene.Metadata,
		})
	}
	if err := index.UpsertBatch(records); err != nil {
		return err
	}
	if err := index.Save(out); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ingested %d scenes into %s (%d skipped, %d total)\n",
		len(records), out, skipped, index.Len())
	return nil
}
