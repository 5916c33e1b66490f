package main

//
// The operations subcommand: list what a schema can do.
//

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nimbus-sdk/nimbus-go/internal/schemaload"
	"github.com/nimbus-sdk/nimbus-go/model"
)

func operationsSubcommand() *cobra.Command {
	return &cobra.Command{
		Use:   "operations <schema.json>",
		Short: "List the operations a schema declares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, err := schemaload.ReadServiceModel(args[0])
			if err != nil {
				return err
			}
			for _, opName := range sm.OperationNames() {
				op, err := sm.OperationModel(opName)
				if err != nil {
					return err
				}
				httpInfo := op.HTTP()
				input, err := op.InputShape()
				if err != nil {
					return err
				}
				output, err := op.OutputShape()
				if err != nil {
					return err
				}
				fmt.Printf(
					"%s %s %s %s -> %s\n",
					opName, httpInfo.Method, httpInfo.RequestURI,
					shapeNameOrDash(input), shapeNameOrDash(output))
			}
			return nil
		},
	}
}

func shapeNameOrDash(shape *model.Shape) string {
	if shape == nil {
		return "-"
	}
	return shape.Name()
}
