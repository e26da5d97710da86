package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/martinemde/netdoc/networkstatus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <document>",
	Short: "Summarize a network-status document",
	Long:  "Parse a vote or consensus and print its header, authorities, router count, and footer.",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectDocument,
}

func init() {
	inspectCmd.Flags().Bool("validate", false, "Reject documents with format violations instead of applying defaults")
	inspectCmd.Flags().Bool("routers", false, "List every router entry")

	_ = viper.BindPFlag("validate", inspectCmd.Flags().Lookup("validate"))

	rootCmd.AddCommand(inspectCmd)
}

func inspectDocument(cmd *cobra.Command, args []string) error {
	listRouters, _ := cmd.Flags().GetBool("routers")
	verbose := viper.GetBool("verbose")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	opts := networkstatus.Options{
		Validate: viper.GetBool("validate"),
		Lazy:     viper.GetBool("lazy"),
		Handler:  networkstatus.HandlerEntries,
	}

	// Stream the router section so large consensuses do not have to fit
	// in memory.
	er, err := networkstatus.NewEntryReader(f, opts)
	if err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}

	routerCount := 0
	for er.Scan() {
		routerCount++
		if listRouters {
			entry := er.Entry()
			fmt.Printf("  %s %s %s:%d flags=%v\n",
				entry.Nickname, entry.Identity, entry.Address, entry.ORPort, entry.Flags)
		}
	}
	if err := er.Err(); err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}
	doc := er.Document()

	role := "consensus"
	if doc.IsVote() {
		role = "vote"
	}
	flavor := ""
	if doc.IsMicrodescriptor() {
		flavor = " (microdesc)"
	}
	fmt.Printf("Document: %s%s, network-status-version %s\n", role, flavor, doc.Version())

	if doc.IsVote() {
		fmt.Printf("Consensus methods: %v\n", doc.ConsensusMethods())
		if published, err := doc.Published(); err == nil && !published.IsZero() {
			fmt.Printf("Published: %s\n", published.Format("2006-01-02 15:04:05"))
		}
	} else {
		fmt.Printf("Consensus method: %d\n", doc.ConsensusMethod())
	}

	if validAfter, err := doc.ValidAfter(); err == nil {
		validUntil, _ := doc.ValidUntil()
		fmt.Printf("Valid: %s .. %s\n",
			validAfter.Format("2006-01-02 15:04:05"), validUntil.Format("2006-01-02 15:04:05"))
	}
	if flags, err := doc.KnownFlags(); err == nil {
		fmt.Printf("Known flags: %v\n", flags)
	}
	if params, err := doc.Params(); err == nil && len(params) > 0 {
		fmt.Printf("Params:")
		for _, p := range params {
			fmt.Printf(" %s=%d", p.Key, p.Value)
		}
		fmt.Println()
	}

	fmt.Printf("Authorities: %d\n", len(doc.Authorities()))
	if verbose {
		for _, auth := range doc.Authorities() {
			fmt.Printf("  %s %s %s:%d\n", auth.Nickname, auth.Fingerprint, auth.Address, auth.ORPort)
		}
	}
	fmt.Printf("Routers: %d\n", routerCount)

	if weights, err := doc.BandwidthWeights(); err == nil && len(weights) > 0 {
		keys := make([]string, 0, len(weights))
		for key := range weights {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		fmt.Printf("Bandwidth weights:")
		for _, key := range keys {
			fmt.Printf(" %s=%d", key, weights[key])
		}
		fmt.Println()
	}
	fmt.Printf("Signatures: %d\n", len(doc.Signatures()))

	if verbose {
		for _, line := range doc.UnrecognizedLines() {
			fmt.Fprintf(os.Stderr, "unrecognized: %s\n", line)
		}
	}
	return nil
}
