package cmd

import (
	"fmt"
	"os"

	"chainlink-consumer/logger"
	solana_chainlink "chainlink-consumer/solana"

	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <address>",
	Short: "Fetch and decode an existing Decimal account.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, client, idl, err := readOnlySetup(cmd)
		if err != nil {
			return err
		}
		address, err := parseAddress("account", args[0])
		if err != nil {
			return err
		}
		layout, err := idl.DecimalLayout(cfg.Space)
		if err != nil {
			return err
		}

		decoded, err := client.FetchAndDecode(cmd.Context(), address, layout)
		if err != nil {
			return err
		}
		value, err := decoded.Decimal()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, promptStyle.Render(fmt.Sprintf("Account:  %s", address)))
		fmt.Fprintln(out, promptStyle.Render(fmt.Sprintf("Value:    %s", value.Value)))
		fmt.Fprintln(out, promptStyle.Render(fmt.Sprintf("Decimals: %d", value.Decimals)))
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("💰 %s", value)))
		return nil
	},
}

// readOnlySetup resolves the config and builds a client that never signs.
func readOnlySetup(cmd *cobra.Command) (Config, *solana_chainlink.Client, *solana_chainlink.IDL, error) {
	cfg, err := resolveConfig(cmd, os.Getenv)
	if err != nil {
		return cfg, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, nil, err
	}

	idl, err := loadIDL(cmd.ErrOrStderr(), cfg.IDLPath)
	if err != nil {
		return cfg, nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return cfg, nil, nil, err
	}
	opts, err := cfg.ClientOptions()
	if err != nil {
		return cfg, nil, nil, err
	}
	client, err := solana_chainlink.NewReadOnlyClient(cfg.RpcEndpoint, opts, log)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("failed to create Solana client: %w", err)
	}
	return cfg, client, idl, nil
}
