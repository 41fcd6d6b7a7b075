package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/duskolend/creditd/internal/metrics"
)

func scoreCmd() *cobra.Command {
	var (
		token      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "score <address>",
		Short: "Compute the combined credit score for an address",
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

			result, err := engine.ComputeCombinedScore(cmd.Context(), args[0], token)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Printf("Address:           %s\n", result.Address)
			fmt.Printf("Token:             %s\n", result.Token)
			fmt.Printf("Base score:        %.2f\n", result.BaseScore)
			fmt.Printf("Wash-trade penalty: %.2f\n", result.WashTradePenalty)
			fmt.Printf("Final score:       %.2f\n", result.FinalScore)
			fmt.Printf("Risk level:        %s\n", result.RiskLevel)
			fmt.Printf("Interest rate:     %.2f%%\n", result.RecommendedInterestRate)
			fmt.Printf("Max loan amount:   %.2f\n", result.MaxLoanAmount)
			fmt.Printf("\n%s\n", result.Explanation)
			return nil
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "token symbol to inspect (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit the result as JSON")
	return cmd
}
