// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/concept-engine/pkg/types"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the knowledge base (store, stats, export)",
	Long: `Knowledge manages the local SQLite knowledge base that the retrieval
adapters query. Source files live under knowledge/sources/<collection>/,
where collection is one of project, core, live, or predictive. Project
documents sit one level deeper, under project/<scope>/.`,
}

// --- store subcommand ---

var knowledgeStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest knowledge source files into the knowledge base",
	Long: `Store reads YAML and Markdown files from knowledge/sources/, embeds each
document with the configured provider, and writes them to the SQLite
index. Unchanged files are skipped on subsequent runs. Documents whose
embedding fails are still indexed and remain reachable by keyword search.`,
	RunE: runKnowledgeStore,
}

func runKnowledgeStore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore(newEmbedder(ctx))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(ctx, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d source file(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- stats subcommand ---

var knowledgeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print document counts per collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(nil)
		if err != nil {
			return err
		}
		defer store.Close()

		counts, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}
		collections := make([]string, 0, len(counts))
		for c := range counts {
			collections = append(collections, c)
		}
		sort.Strings(collections)

		total := 0
		for _, c := range collections {
			fmt.Fprintf(os.Stdout, "%-12s %d\n", c, counts[c])
			total += counts[c]
		}
		fmt.Fprintf(os.Stdout, "\n%d documents\n", total)
		return nil
	},
}

// --- export subcommand ---

var knowledgeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the knowledge base to YAML or JSON",
	Long: `Export writes the knowledge base (or one collection) to
knowledge/index/export.yaml or export.json. Embeddings are not exported;
the embedded field records whether a document has one.`,
	RunE: runKnowledgeExport,
}

func runKnowledgeExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	collection, _ := cmd.Flags().GetString("collection")
	if collection != "" && !types.IsCollection(collection) {
		return fmt.Errorf("unknown collection %q: use project, core, live, or predictive", collection)
	}

	store, err := openStore(nil)
	if err != nil {
		return err
	}
	defer store.Close()

	switch format {
	case "yaml", "":
		err = store.ExportYAML(cmd.Context(), collection)
		format = "yaml"
	case "json":
		err = store.ExportJSON(cmd.Context(), collection)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", store.ExportPath(format))
	return nil
}

func init() {
	knowledgeCmd.PersistentFlags().String("knowledge-dir", "knowledge", "base directory for knowledge (contains sources/, index/)")
	_ = viper.BindPFlag("knowledge_base.knowledge_dir", knowledgeCmd.PersistentFlags().Lookup("knowledge-dir"))

	knowledgeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	knowledgeExportCmd.Flags().String("collection", "", "export only this collection")

	knowledgeCmd.AddCommand(knowledgeStoreCmd)
	knowledgeCmd.AddCommand(knowledgeStatsCmd)
	knowledgeCmd.AddCommand(knowledgeExportCmd)

	rootCmd.AddCommand(knowledgeCmd)
}
