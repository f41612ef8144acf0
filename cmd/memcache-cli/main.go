// Command memcache-cli runs single memcache commands against a server list.
//
//	memcache-cli --servers a:11211,b:11211:2 set greeting hello --ttl 1h
//	memcache-cli get greeting
//
// Flags can also be set from MEMCACHE_* environment variables, or from .env
// and .env.local files in the working directory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:               "memcache-cli",
	Short:             "Run memcache text protocol commands",
	SilenceUsage:      true,
	PersistentPreRunE: setupClient,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if client != nil {
			client.Close()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setupClientFlags(rootCmd)
	addCommands(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
