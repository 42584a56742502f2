package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/megaapi"
)

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <number> <text...>",
		Short: "Send a WhatsApp message through the gateway",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.MegaAPI.BaseURL == "" || cfg.MegaAPI.Token == "" || cfg.MegaAPI.InstanceID == "" {
				return fmt.Errorf("gateway is not configured (set megaApi.baseUrl, megaApi.token, megaApi.instanceId)")
			}

			to := args[0]
			text := strings.Join(args[1:], " ")

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			mega := megaapi.New(cfg.MegaAPI.BaseURL, cfg.MegaAPI.Token, cfg.MegaAPI.InstanceID, log)
			if err := mega.SendText(ctx, to, text); err != nil {
				return err
			}
			fmt.Printf("Sent to %s.\n", to)
			return nil
		},
	}

	return cmd
}
