package main

import (
	"github.com/spf13/cobra"

	"github.com/shawnlimjunhe/superliquid/log"
)

var rootCmd = &cobra.Command{
	Use:   "superliquid",
	Short: "superliquid runs or talks to a BFT replica of the spot exchange",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
