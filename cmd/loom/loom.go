// Package loomcmder
package loomcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/crosswirelabs/loom/cmd/loom/chat"
	configcmder "github.com/crosswirelabs/loom/cmd/loom/config"
	servecmder "github.com/crosswirelabs/loom/cmd/loom/serve"
	versioncmder "github.com/crosswirelabs/loom/cmd/version"
)

const loomLongDesc string = `Loom is a conversational reasoning server with memory and retrieval.

Run the server using:
  loom serve           Run the API server and background workers

Talk to a running server using:
  loom chat            Interactive chat session
  loom config          Manage persistent configuration`

const loomShortDesc string = "Loom - Conversational Reasoning Server"

func NewLoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loom",
		Short: loomShortDesc,
		Long:  loomLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Path to the .loom/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
