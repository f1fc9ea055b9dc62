package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nexora/internal/contract"
	"github.com/felixgeelhaar/nexora/internal/ux"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the resolved configuration",
	Long: `Settings are resolved from flags, NEXORA_* environment variables (also read
from --env-file), ~/.nexora/config.yaml and defaults, in that order.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configEndpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "List the backend endpoints nexora calls",
	Args:  cobra.NoArgs,
	RunE:  runConfigEndpoints,
}

func init() {
	configCmd.AddCommand(configShowCmd, configEndpointsCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}
	if !cc.Text() {
		return cc.Print(cc.Config)
	}

	t := ux.Table{Columns: []string{"KEY", "VALUE"}}
	for _, s := range cc.Config.Settings() {
		t.Rows = append(t.Rows, []string{s.Key, s.Value})
	}
	if err := cc.Print(t); err != nil {
		return err
	}

	file := cc.Config.File
	if file == "" {
		file = "none"
	}
	cc.Notice("Config file: %s", file)
	return nil
}

func runConfigEndpoints(cmd *cobra.Command, args []string) error {
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}
	ops := contract.MustNew().Operations()
	if !cc.Text() {
		return cc.Print(ops)
	}

	t := ux.Table{Columns: []string{"METHOD", "PATH", "OPERATION"}}
	for _, op := range ops {
		t.Rows = append(t.Rows, []string{op.Method, op.Path, op.ID})
	}
	return cc.Print(t)
}
