package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sceneloop",
	Short: "SceneLoop - multi-agent scene analysis orchestration worker",
	Long: `SceneLoop coordinates specialized analysis agents (scene understanding,
anomaly detection, similarity search) into an iterative pipeline over
automotive sensor scenes, refining results across cycles until they
converge or no new insight appears.

The worker processes one scene per invocation; the outer workflow engine
schedules one execution per scene and owns retries.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "worker.yaml", "path to the worker configuration file")
	rootCmd.AddCommand(runCmd)
}
