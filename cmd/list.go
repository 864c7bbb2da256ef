package cmd

import (
	"fmt"

	solana_chainlink "chainlink-consumer/solana"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every Decimal account owned by the program.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, client, idl, err := readOnlySetup(cmd)
		if err != nil {
			return err
		}
		programID, err := solana_chainlink.ResolveProgramID(idl, cfg.ProgramID)
		if err != nil {
			return err
		}

		accounts, err := client.FetchAllDecimalAccounts(cmd.Context(), programID, idl, cfg.Space)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("📊 %d Decimal accounts owned by %s", len(accounts), programID)))
		for _, acc := range accounts {
			value, err := acc.Account.Decimal()
			if err != nil {
				fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("%s: %v", acc.PublicKey, err)))
				continue
			}
			fmt.Fprintln(out, promptStyle.Render(fmt.Sprintf("%s  %s", acc.PublicKey, value)))
		}
		return nil
	},
}
