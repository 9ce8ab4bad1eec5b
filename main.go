package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ar-tryon/pkg/utils"
)

const version = "0.1.0"

func main() {
	logger := utils.GetLogger()
	defer logger.Sync()

	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ar-tryon",
		Short: "Virtual try-on kiosk for a clothing catalog",
		Long: `ar-tryon serves a clothing catalog together with a try-on session.

A shopper picks an item, then either opens the live camera or supplies a photo
from the gallery or a direct capture. Size and color can be changed at any time
while the session is open.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCatalogCmd())

	return cmd
}
