package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/martinemde/netdoc/descriptor"
	"github.com/martinemde/netdoc/networkstatus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkCmd = &cobra.Command{
	Use:   "check <document>...",
	Short: "Validate network-status documents",
	Long:  "Parse each document with full validation and report the first format violation found.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  checkDocuments,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkDocuments(cmd *cobra.Command, args []string) error {
	verbose := viper.GetBool("verbose")

	failed := 0
	for _, path := range args {
		if err := checkOne(path); err != nil {
			failed++
			var pe *descriptor.ParseError
			if errors.As(err, &pe) {
				fmt.Fprintf(os.Stderr, "%s: %s\n", path, pe)
			} else {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			}
			continue
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "%s: ok\n", path)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed validation", failed, len(args))
	}
	return nil
}

func checkOne(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	er, err := networkstatus.NewEntryReader(f, networkstatus.Options{Validate: true})
	if err != nil {
		return err
	}
	for er.Scan() {
	}
	return er.Err()
}
