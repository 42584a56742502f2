package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/agent"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/config"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/gateway"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/llm"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/megaapi"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/rag"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/relay"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook and dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("preparing data directories: %w", err)
			}

			// The passage index always lives in SQLite; the session
			// store choice only affects transcripts.
			dbPath := filepath.Join(paths.Data, "megabot.db")
			db, err := store.Open(dbPath, log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			var transcripts agent.TranscriptStore
			if cfg.Session.Store == "memory" {
				transcripts = agent.NewMemoryTranscriptStore()
				log.Info().Msg("using in-memory transcript store")
			} else {
				transcripts = store.NewTranscriptStore(db)
				log.Info().Str("path", dbPath).Msg("using SQLite transcript store")
			}
			passages := store.NewPassageStore(db)

			client := llm.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
			embedder := rag.NewHTTPEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)

			var retriever agent.Retriever
			r, err := rag.NewRetriever(embedder, client, passages, cfg.LLM.Model, cfg.RAG.TopK, log)
			switch {
			case err == nil:
				retriever = r
			case errors.Is(err, rag.ErrIndexEmpty):
				log.Warn().Msg("passage index is empty, replies will not be grounded; run 'megabot ingest' to add documents")
			default:
				return fmt.Errorf("initializing retriever: %w", err)
			}

			responder := agent.NewResponder(agent.ResponderConfig{
				Model:       cfg.LLM.Model,
				MaxTokens:   cfg.LLM.MaxTokens,
				Temperature: cfg.LLM.Temperature,
				MaxTurns:    cfg.Session.MaxTurns,
			}, client, retriever, transcripts, log)

			mega := megaapi.New(cfg.MegaAPI.BaseURL, cfg.MegaAPI.Token, cfg.MegaAPI.InstanceID, log)
			rel := relay.New(responder, mega, log)
			ingester := rag.NewIngester(embedder, passages, log)

			srv := gateway.NewServer(cfg, gateway.Deps{
				Responder: responder,
				Messenger: mega,
				Sink:      rel,
				Ingester:  ingester,
				Index:     passages,
				RAGReady:  retriever != nil,
			}, log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override the listen port")
	cmd.Flags().StringVar(&bind, "bind", "", "override the bind mode (loopback, lan, custom)")

	return cmd
}
