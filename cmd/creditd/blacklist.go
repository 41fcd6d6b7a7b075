package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duskolend/creditd/internal/domain"
	"github.com/duskolend/creditd/internal/metrics"
)

func blacklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blacklist",
		Short: "Flag or clear addresses in the wash-trade blacklist",
	}
	cmd.AddCommand(blacklistMutationCmd("add", "Flag an address for a token"))
	cmd.AddCommand(blacklistMutationCmd("remove", "Clear an address flag for a token"))
	return cmd
}

func blacklistMutationCmd(action, short string) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <address>", action),
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			engine, _, cleanup, err := buildEngine(cfg, metrics.NewRegistry())
			if err != nil {
				return err
			}
			defer cleanup()

			// The mutation re-fetches only the wash-trade assessment, which
			// needs the base score as input, so fetch the full combined
			// score first and reuse its base component.
			current, err := engine.ComputeCombinedScore(cmd.Context(), args[0], token)
			if err != nil {
				return err
			}

			var assessment *domain.WashTradeAssessment
			switch action {
			case "add":
				assessment, err = engine.FlagAddress(cmd.Context(), args[0], token, current.BaseScore)
			case "remove":
				assessment, err = engine.ClearFlag(cmd.Context(), args[0], token, current.BaseScore)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Address:        %s\n", current.Address)
			fmt.Printf("Detected:       %v\n", assessment.Detected)
			fmt.Printf("Adjusted score: %.2f\n", assessment.AdjustedScore)
			fmt.Printf("Penalty:        %.2f\n", assessment.Penalty)
			fmt.Printf("Lending risk:   %s\n", assessment.Recommendation.LendingRisk)
			return nil
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "token symbol (default from config)")
	return cmd
}
