package main

import (
	"github.com/CZERTAINLY/Spotter/internal/client"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const clientKey = "client"

var flagHistoryLimit int

func addClientCommands(root *cobra.Command) {
	for _, cmd := range []*cobra.Command{startCmd, stopCmd, statusCmd, historyCmd} {
		cmd.Flags().String("addr", "", "address of the spotter daemon, overrides $SPOTTER_ADDR")
		root.AddCommand(cmd)
	}
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 0, "number of notifications to show, 0 means server default")
}

var startCmd = &cobra.Command{
	Use:     "start [phrases...]",
	Short:   "start asks the daemon to start the detection loop",
	PreRunE: bindClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.Start(cmd.Context(), args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), st)
	},
}

var stopCmd = &cobra.Command{
	Use:     "stop",
	Short:   "stop asks the daemon to stop the detection loop",
	PreRunE: bindClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.Stop(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), st)
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "status reports whether the detection loop is running",
	PreRunE: bindClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.Status(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), st)
	},
}

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "history prints recent notifications, newest first",
	PreRunE: bindClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		recent, err := c.History(cmd.Context(), flagHistoryLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), recent)
	},
}

// bindClient binds --addr of the running command and $SPOTTER_ADDR.
func bindClient(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlag(clientKey+".addr", cmd.Flags().Lookup("addr")); err != nil {
		return err
	}
	return viper.BindEnv(clientKey+".addr", "SPOTTER_ADDR")
}

func newClient() (*client.Client, error) {
	cfg, err := client.ParseConfig(clientKey)
	if err != nil {
		return nil, err
	}
	return cfg.Client()
}
