package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shawnlimjunhe/superliquid/crypto"
	"github.com/shawnlimjunhe/superliquid/log"
)

var gennodeidCmd = &cobra.Command{
	Use:   "gennodeid",
	Short: "Generate a random keypair for a validator replica",
	Long: `Generate a random keypair for a validator, the keypair contains the
signing seed and the public key. For the validator at roster index i,
the public key goes in the config's PUBLIC_KEY_i and the seed in its
SECRET_KEY_i.`,
	Run: func(cmd *cobra.Command, args []string) {
		pub, seed, err := crypto.GetNodeKeypair()
		if err != nil {
			log.Fatalf("generate random node ID failed: %v", err)
		}
		fmt.Printf("ValidatorID: %s, Seed: %s\n", pub, seed)
	},
}

var genaccountidCmd = &cobra.Command{
	Use:   "genaccountid",
	Short: "Generate a random keypair for a trading account",
	Long: `Generate a random keypair for an account, the keypair contains the
signing seed and the public key. The public key is the account's ID;
the seed signs transactions from this account (see console's load
command).`,
	Run: func(cmd *cobra.Command, args []string) {
		pub, seed, err := crypto.GetAccountKeypair()
		if err != nil {
			log.Fatalf("generate random account ID failed: %v", err)
		}
		fmt.Printf("AccountID: %s, Seed: %s\n", pub, seed)
	},
}

func init() {
	rootCmd.AddCommand(gennodeidCmd)
	rootCmd.AddCommand(genaccountidCmd)
}
