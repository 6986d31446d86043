package cmd

import (
	"errors"

	"github.com/openpantry/pantry/src/utils/logger"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the health of a running pantry service",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("check-cmd")

		resp, err := resty.New().R().
			SetContext(applicationCtx).
			Get("http://localhost" + conf.RESTListenAddress + "/v1/health")
		if err != nil {
			return
		}

		log.WithField("status", resp.StatusCode()).
			WithField("body", string(resp.Body())).
			Info("Health check")

		if resp.IsError() {
			return errors.New("service unhealthy")
		}
		return
	},
}
