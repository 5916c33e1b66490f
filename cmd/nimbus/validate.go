package main

//
// The validate subcommand: resolve everything a schema declares.
//

import (
	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/nimbus-sdk/nimbus-go/internal/schemaload"
	"github.com/nimbus-sdk/nimbus-go/model"
	"github.com/nimbus-sdk/nimbus-go/parse"
	"github.com/nimbus-sdk/nimbus-go/serialize"
)

func validateSubcommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema.json>",
		Short: "Check that every shape and operation in a schema resolves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, err := schemaload.ReadServiceModel(args[0])
			if err != nil {
				return err
			}
			return validateServiceModel(sm)
		},
	}
}

func validateServiceModel(sm *model.ServiceModel) error {
	protocol, err := sm.Protocol()
	if err != nil {
		return err
	}
	if _, err := serialize.ForProtocol(protocol); err != nil {
		return err
	}
	if _, err := parse.ForProtocol(protocol); err != nil {
		return err
	}
	resolver := sm.Resolver()
	shapeNames := resolver.ShapeNames()
	for _, name := range shapeNames {
		shape, err := resolver.GetShapeByName(name)
		if err != nil {
			return err
		}
		if err := checkShape(shape); err != nil {
			return err
		}
	}
	opNames := sm.OperationNames()
	for _, opName := range opNames {
		op, err := sm.OperationModel(opName)
		if err != nil {
			return err
		}
		if _, err := op.InputShape(); err != nil {
			return err
		}
		if _, err := op.OutputShape(); err != nil {
			return err
		}
		if _, err := op.ErrorShapes(); err != nil {
			return err
		}
	}
	log.Infof("%d shapes and %d operations resolve cleanly", len(shapeNames), len(opNames))
	return nil
}

// checkShape resolves the shape's immediate references. Every named
// shape goes through here, so one level per shape covers the graph.
func checkShape(shape *model.Shape) error {
	switch shape.Type() {
	case model.TypeStructure:
		_, err := shape.Members()
		return err
	case model.TypeList:
		_, err := shape.Member()
		return err
	case model.TypeMap:
		if _, err := shape.Key(); err != nil {
			return err
		}
		_, err := shape.Value()
		return err
	default:
		return nil
	}
}
