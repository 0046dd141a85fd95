// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/concept-engine/internal/generate"
	"github.com/pdiddy/concept-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate <wildcard|opportunity> <concept>",
	Short: "Generate grounded wildcard ideas or strategic opportunities",
	Long: `Generate retrieves context for the concept, asks Claude for artifacts of
the requested kind, and keeps only those whose evidence cites the retrieved
context. With --baseline (or --baseline-file), artifacts too similar to the
earlier output are dropped, and if every artifact is too similar the model
is asked once more for a different angle.

Output is YAML unless --json is set.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	kind := types.ArtifactKind(strings.ToLower(args[0]))
	req := generate.Request{
		Kind:    kind,
		Concept: strings.Join(args[1:], " "),
	}
	req.ScopeID, _ = cmd.Flags().GetString("scope")
	req.Persona = optionalFlag(cmd, "persona")
	req.Region = optionalFlag(cmd, "region")
	req.Baseline = optionalFlag(cmd, "baseline")

	if path, _ := cmd.Flags().GetString("baseline-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading baseline: %w", err)
		}
		baseline := string(data)
		req.Baseline = &baseline
	}

	opts := retrievalOptions(cmd)
	req.Retrieval = &opts

	emb := newEmbedder(ctx)
	store, err := openStore(emb)
	if err != nil {
		return err
	}
	defer store.Close()

	gen, err := newGenerator(newOrchestrator(store, emb), emb)
	if err != nil {
		return err
	}

	resp, err := gen.Generate(ctx, req)
	if err != nil {
		return err
	}
	for _, w := range resp.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(resp)
}

// optionalFlag returns the flag value when it was set on the command line.
func optionalFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func init() {
	addRetrievalFlags(generateCmd)
	generateCmd.Flags().String("persona", "", "target persona")
	generateCmd.Flags().String("region", "", "target region")
	generateCmd.Flags().String("baseline", "", "earlier output to steer away from")
	generateCmd.Flags().String("baseline-file", "", "read the baseline from a file")

	rootCmd.AddCommand(generateCmd)
}
