// Package answerlinecmder
package answerlinecmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/answerline/cmd/answerline/ask"
	configcmder "github.com/papercomputeco/answerline/cmd/answerline/config"
	servecmder "github.com/papercomputeco/answerline/cmd/answerline/serve"
	versioncmder "github.com/papercomputeco/answerline/cmd/version"
)

const answerlineLongDesc string = `Answerline is an agent orchestration backend with multi-provider streaming.

Run the server and talk to it using:
  answerline serve     Run the API server
  answerline ask       Interactive question session against a running server
  answerline config    Manage persistent configuration`

const answerlineShortDesc string = "Answerline - Agent Orchestration Backend"

func NewAnswerlineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answerline",
		Short: answerlineShortDesc,
		Long:  answerlineLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .answerline/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
