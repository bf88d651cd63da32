// Command bincodecd serves the codec over HTTP and WebSocket, and
// optionally drains a Kafka topic, from a single YAML config file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "bincodecd",
		Short: "binary serialization daemon",
		Long: fmt.Sprintf(`bincodecd (v%s)

Serves a compact-binary-first serialization layer over HTTP and
WebSocket, with JSON fallback, size limits and per-call metrics.
Configuration comes from a YAML file plus BINCODEC_ environment
overrides.`, version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the bincodecd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bincodecd v%s\n", version)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the bincodecd server",
		RunE:  runServe,
	}
)

func init() {
	serveCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to config file (YAML)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
