package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shawnlimjunhe/superliquid/console"
	"github.com/shawnlimjunhe/superliquid/log"
)

var consoleAddr string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start an interactive client console against a running node",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := console.Dial(consoleAddr)
		if err != nil {
			log.Fatal(err)
		}
		defer c.Close()
		console.Run(c, os.Stdin, os.Stdout)
	},
}

func init() {
	consoleCmd.Flags().StringVarP(&consoleAddr, "addr", "a", "127.0.0.1:9000", "address of the node's RPC server")
	rootCmd.AddCommand(consoleCmd)
}
