package cmd

import (
	"github.com/openpantry/pantry/src/app"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pantry service",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := app.NewController(conf)
		if err != nil {
			return
		}

		err = controller.Start()
		if err != nil {
			return
		}

		// Wait for the shutdown signal
		<-applicationCtx.Done()

		controller.StopWait()

		return
	},
}
