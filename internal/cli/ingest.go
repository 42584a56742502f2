package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/rag"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/store"
)

func newIngestCmd() *cobra.Command {
	var (
		seed  bool
		reset bool
	)

	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Add documents to the knowledge base",
		Long:  "Splits, embeds, and indexes documents so replies can be grounded in them. Accepts a .txt/.md file or a directory, --seed for the built-in starter content, or no arguments to ingest the documents drop directory.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Embedding.APIKey == "" {
				return fmt.Errorf("embedding API key is not configured (set llm.apiKey or OPENAI_API_KEY)")
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("preparing data directories: %w", err)
			}
			db, err := store.Open(filepath.Join(paths.Data, "megabot.db"), log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			embedder := rag.NewHTTPEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
			passages := store.NewPassageStore(db)
			ingester := rag.NewIngester(embedder, passages, log)

			ctx := cmd.Context()
			total := 0

			if reset {
				if err := passages.Reset(); err != nil {
					return err
				}
				fmt.Println("Index cleared.")
			}

			if seed {
				n, err := ingester.IngestSeed(ctx)
				if err != nil {
					return err
				}
				total += n
			}

			switch {
			case len(args) == 1:
				n, err := ingestPath(ctx, ingester, args[0])
				if err != nil {
					return err
				}
				total += n
			case !seed:
				n, err := ingester.IngestDir(ctx, paths.Documents)
				if err != nil {
					return err
				}
				total += n
			}

			count, err := passages.Count()
			if err != nil {
				return err
			}
			fmt.Printf("Ingested %d passage(s); index now holds %d.\n", total, count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "ingest the built-in starter knowledge base")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear the index before ingesting")

	return cmd
}

func ingestPath(ctx context.Context, ingester *rag.Ingester, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return ingester.IngestDir(ctx, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return ingester.IngestText(ctx, filepath.Base(path), string(data))
}
