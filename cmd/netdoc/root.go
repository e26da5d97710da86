package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "netdoc",
	Short: "Tor network-status document inspector",
	Long:  "Netdoc parses v3 network-status votes and consensuses and reports their contents and format violations.",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().Bool("lazy", false, "Defer field materialization until first read")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	_ = viper.BindPFlag("lazy", rootCmd.PersistentFlags().Lookup("lazy"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	viper.SetEnvPrefix("NETDOC")
	viper.AutomaticEnv()
}
