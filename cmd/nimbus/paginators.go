package main

//
// The paginators subcommand: list declared paginator configurations.
//

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nimbus-sdk/nimbus-go/internal/schemaload"
)

func paginatorsSubcommand() *cobra.Command {
	return &cobra.Command{
		Use:   "paginators <paginators.json>",
		Short: "List the paginators a pagination schema declares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pm, err := schemaload.ReadPaginationModel(args[0])
			if err != nil {
				return err
			}
			for _, opName := range pm.OperationNames() {
				config, err := pm.Config(opName)
				if err != nil {
					return err
				}
				fmt.Printf("%s:\n", opName)
				fmt.Printf("  input tokens: %s\n", strings.Join(config.InputTokens, ", "))
				fmt.Printf("  output tokens: %s\n", strings.Join(config.OutputTokens, ", "))
				fmt.Printf("  result keys: %s\n", strings.Join(config.ResultKeys, ", "))
				if config.LimitKey != "" {
					fmt.Printf("  limit key: %s\n", config.LimitKey)
				}
				if config.MoreResults != "" {
					fmt.Printf("  more results: %s\n", config.MoreResults)
				}
				if len(config.NonAggregateKeys) > 0 {
					fmt.Printf("  non-aggregate keys: %s\n", strings.Join(config.NonAggregateKeys, ", "))
				}
			}
			return nil
		},
	}
}
