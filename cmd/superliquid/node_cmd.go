package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shawnlimjunhe/superliquid/log"
	"github.com/shawnlimjunhe/superliquid/node"
)

var nodeCfgFile string

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Start this process as one validator replica",
	Long: `Start a validator replica: it boots the consensus replica, mempool,
ledger and peer gossip from the given config file and environment, then
serves the client RPC protocol until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		if nodeCfgFile == "" {
			log.Fatal(errors.New("config file not provided"))
		}
		v := viper.New()
		v.SetConfigFile(nodeCfgFile)
		if err := v.ReadInConfig(); err != nil {
			log.Fatal(err)
		}

		cfg, err := node.NewConfig(v)
		if err != nil {
			log.Fatal(err)
		}

		n := node.NewNode(cfg)
		n.Start()
		select {}
	},
}

func init() {
	nodeCmd.Flags().StringVarP(&nodeCfgFile, "config", "c", "", "path to the node's env-style config file")
	nodeCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(nodeCmd)
}
