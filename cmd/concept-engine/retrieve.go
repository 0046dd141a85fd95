// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/concept-engine/pkg/types"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Assemble the numbered context for a query",
	Long: `Retrieve queries every enabled knowledge source in parallel and prints
the numbered context items (ctx1, ctx2, ...) in bucket order: project,
core, live, predictive. This is the evidence a generate call would see.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")
	scopeID, _ := cmd.Flags().GetString("scope")

	emb := newEmbedder(ctx)
	store, err := openStore(emb)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := newOrchestrator(store, emb).RetrieveContext(ctx, query, scopeID, retrievalOptions(cmd))
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return formatRetrieveOutput(os.Stdout, result)
}

func formatRetrieveOutput(w io.Writer, result types.RetrievalResult) error {
	if len(result.Items) == 0 {
		fmt.Fprintln(w, "No context found.")
		return nil
	}

	fmt.Fprintf(w, "%-6s  %-10s  %s\n", "ID", "Bucket", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, it := range result.Items {
		fmt.Fprintf(w, "%-6s  %-10s  %s\n", it.ID, it.Bucket, it.SourceLabel)
		text := it.Text
		if len(text) > 200 {
			text = text[:197] + "..."
		}
		fmt.Fprintf(w, "        %s\n", text)
	}
	fmt.Fprintf(w, "\n%d items\n", len(result.Items))
	return nil
}

// retrievalOptions overlays retrieval flags on the configured options.
func retrievalOptions(cmd *cobra.Command) types.RetrievalOptions {
	opts := cfg.Retrieval.Options()
	if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
		opts.MaxResults = n
	}
	if noCore, _ := cmd.Flags().GetBool("no-core"); noCore {
		opts.IncludeCore = false
	}
	if noLive, _ := cmd.Flags().GetBool("no-live"); noLive {
		opts.IncludeLive = false
	}
	return opts
}

func addRetrievalFlags(cmd *cobra.Command) {
	cmd.Flags().String("scope", "", "project scope id for project documents")
	cmd.Flags().Int("max-results", 0, "per-source result limit (0 = use config)")
	cmd.Flags().Bool("no-core", false, "skip the core knowledge source")
	cmd.Flags().Bool("no-live", false, "skip live metrics and predictive trends")
	cmd.Flags().Bool("json", false, "output as JSON")
}

func init() {
	addRetrievalFlags(retrieveCmd)
	rootCmd.AddCommand(retrieveCmd)
}
