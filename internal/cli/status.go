package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/config"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/megaapi"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/store"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show megabot status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("megabot %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Println()

			cfg, err := config.Load(paths.Config)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("Config:  not found (using defaults)")
				} else {
					fmt.Printf("Config:  error loading: %v\n", err)
				}
				return nil
			}

			fmt.Printf("Server:  port=%d bind=%s\n", cfg.Server.Port, cfg.Server.Bind)
			fmt.Printf("Session: store=%s maxTurns=%d\n", cfg.Session.Store, cfg.Session.MaxTurns)
			fmt.Printf("LLM:     model=%s endpoint=%s\n", cfg.LLM.Model, cfg.LLM.BaseURL)

			// Passage index
			dbPath := filepath.Join(paths.Data, "megabot.db")
			if _, err := os.Stat(dbPath); err == nil {
				if db, err := store.Open(dbPath, log); err == nil {
					if count, err := store.NewPassageStore(db).Count(); err == nil {
						fmt.Printf("Index:   %d passage(s)\n", count)
					}
					db.Close()
				}
			} else {
				fmt.Println("Index:   (no database yet)")
			}

			// Gateway connectivity
			if cfg.MegaAPI.BaseURL != "" && cfg.MegaAPI.Token != "" && cfg.MegaAPI.InstanceID != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				mega := megaapi.New(cfg.MegaAPI.BaseURL, cfg.MegaAPI.Token, cfg.MegaAPI.InstanceID, log)
				status, err := mega.InstanceStatus(ctx)
				if err != nil {
					fmt.Printf("Gateway: unreachable (%v)\n", err)
				} else {
					detail, _ := json.Marshal(status)
					fmt.Printf("Gateway: connected %s\n", detail)
				}
			} else {
				fmt.Println("Gateway: (not configured)")
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
