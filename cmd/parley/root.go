package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley bridges voice-agent tool calls to external automations",
	Long: `Parley validates tool-call intents from a conversational voice agent and
executes them against an external automation webhook exactly once per intent,
no matter how often the upstream channel retries or reconnects.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
