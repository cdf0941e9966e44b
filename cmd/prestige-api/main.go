// README: Entry point; cobra CLI with the API server (default) and an offline intent classifier.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"prestige/internal/modules/intent"
)

var rootCmd = &cobra.Command{
	Use:          "prestige-api",
	Short:        "Prestige Assistant API for the points & events program",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <message>",
	Short: "Print the intent, limit and date window detected in a message",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

func init() {
	rootCmd.AddCommand(serveCmd, classifyCmd)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runClassify(cmd *cobra.Command, args []string) error {
	res := intent.Classify(strings.ToLower(strings.Join(args, " ")), time.Now())
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
