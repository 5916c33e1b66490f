package main

//
// The shape subcommand: dump one shape's resolved view.
//

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nimbus-sdk/nimbus-go/internal/schemaload"
	"github.com/nimbus-sdk/nimbus-go/model"
)

func shapeSubcommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shape <schema.json> <shape-name>",
		Short: "Dump one shape's resolved type, traits, and members",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, err := schemaload.ReadServiceModel(args[0])
			if err != nil {
				return err
			}
			shape, err := sm.Resolver().GetShapeByName(args[1])
			if err != nil {
				return err
			}
			return dumpShape(shape)
		},
	}
}

func dumpShape(shape *model.Shape) error {
	fmt.Printf("name: %s\n", shape.Name())
	fmt.Printf("type: %s\n", shape.Type())
	sensitive := shape.Sensitive()
	if doc := shape.Documentation(); doc != "" {
		if sensitive {
			doc = "<redacted>"
		}
		fmt.Printf("documentation: %s\n", doc)
	}
	dumpTraits("serialization", shape.Serialization(), false)
	dumpTraits("metadata", shape.Metadata(), sensitive)
	switch shape.Type() {
	case model.TypeStructure:
		members, err := shape.Members()
		if err != nil {
			return err
		}
		required := map[string]bool{}
		for _, name := range shape.RequiredMembers() {
			required[name] = true
		}
		fmt.Printf("members:\n")
		for _, memberName := range members.Names() {
			member, _ := members.Get(memberName)
			marker := ""
			if required[memberName] {
				marker = " (required)"
			}
			fmt.Printf("  %s: %s%s\n", memberName, member, marker)
		}
	case model.TypeList:
		member, err := shape.Member()
		if err != nil {
			return err
		}
		fmt.Printf("member: %s\n", member)
	case model.TypeMap:
		key, err := shape.Key()
		if err != nil {
			return err
		}
		value, err := shape.Value()
		if err != nil {
			return err
		}
		fmt.Printf("key: %s\n", key)
		fmt.Printf("value: %s\n", value)
	}
	return nil
}

// dumpTraits prints a trait bag with deterministic ordering. Sensitive
// shapes hide their enum values.
func dumpTraits(label string, traits map[string]any, sensitive bool) {
	if len(traits) == 0 {
		return
	}
	keys := make([]string, 0, len(traits))
	for key := range traits {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var parts []string
	for _, key := range keys {
		value := traits[key]
		if sensitive && key == "enum" {
			value = "<redacted>"
		}
		parts = append(parts, fmt.Sprintf("%s=%v", key, value))
	}
	fmt.Printf("%s: %s\n", label, strings.Join(parts, " "))
}
