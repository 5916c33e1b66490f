package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nimbus-sdk/nimbus-go/internal/ordered"
)

// mustDoc decodes a JSON document preserving key order.
func mustDoc(t *testing.T, text string) *ordered.Map {
	t.Helper()
	decoded, err := ordered.Decode([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	doc, good := decoded.(*ordered.Map)
	if !good {
		t.Fatalf("expected object, got %T", decoded)
	}
	return doc
}

const shapesFixture = `{
	"Config": {
		"type": "structure",
		"required": ["A"],
		"members": {
			"A": {"shape": "StringType"},
			"B": {"shape": "StringType", "locationName": "b-site"},
			"C": {"shape": "StringType", "documentation": "ref docs"},
			"Tags": {"shape": "TagList"},
			"Attributes": {"shape": "AttrMap"}
		}
	},
	"StringType": {
		"type": "string",
		"locationName": "base-name",
		"documentation": "def docs",
		"min": 1,
		"max": 9,
		"enum": ["on", "off"]
	},
	"TagList": {
		"type": "list",
		"flattened": true,
		"member": {"shape": "StringType", "locationName": "item"}
	},
	"AttrMap": {
		"type": "map",
		"key": {"shape": "StringType", "locationName": "k"},
		"value": {"shape": "StringType", "locationName": "v"}
	},
	"Secret": {
		"type": "string",
		"sensitive": true
	},
	"Untyped": {
		"documentation": "no type here"
	},
	"Weird": {
		"type": "spaceship"
	},
	"Node": {
		"type": "structure",
		"members": {
			"Next": {"shape": "Node"},
			"Label": {"shape": "StringType"}
		}
	}
}`

func TestShapeResolverGetShapeByName(t *testing.T) {
	resolver := NewShapeResolver(mustDoc(t, shapesFixture))

	t.Run("resolves a declared shape", func(t *testing.T) {
		shape, err := resolver.GetShapeByName("Config")
		if err != nil {
			t.Fatal(err)
		}
		if shape.Name() != "Config" {
			t.Fatal("unexpected name", shape.Name())
		}
		if shape.Type() != TypeStructure {
			t.Fatal("unexpected type", shape.Type())
		}
	})

	t.Run("repeated lookups return the same shape", func(t *testing.T) {
		first, err := resolver.GetShapeByName("StringType")
		if err != nil {
			t.Fatal(err)
		}
		second, err := resolver.GetShapeByName("StringType")
		if err != nil {
			t.Fatal(err)
		}
		if first != second {
			t.Fatal("expected the memoized shape")
		}
	})

	t.Run("fails for an undeclared name", func(t *testing.T) {
		_, err := resolver.GetShapeByName("Missing")
		var target *NoShapeFoundError
		if !errors.As(err, &target) {
			t.Fatal("unexpected error", err)
		}
		if target.ShapeName != "Missing" {
			t.Fatal("unexpected shape name", target.ShapeName)
		}
	})

	t.Run("fails without a type discriminator", func(t *testing.T) {
		_, err := resolver.GetShapeByName("Untyped")
		var target *InvalidShapeError
		if !errors.As(err, &target) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("fails for an unrecognized type tag", func(t *testing.T) {
		_, err := resolver.GetShapeByName("Weird")
		var target *InvalidShapeError
		if !errors.As(err, &target) {
			t.Fatal("unexpected error", err)
		}
	})
}

func TestShapeResolverResolveShapeRef(t *testing.T) {
	resolver := NewShapeResolver(mustDoc(t, shapesFixture))

	t.Run("trait-free reference resolves to the named shape", func(t *testing.T) {
		shape, err := resolver.ResolveShapeRef(mustDoc(t, `{"shape": "StringType"}`))
		if err != nil {
			t.Fatal(err)
		}
		if shape.Name() != "StringType" {
			t.Fatal("unexpected name", shape.Name())
		}
	})

	t.Run("inline type instead of a reference fails", func(t *testing.T) {
		_, err := resolver.ResolveShapeRef(mustDoc(t, `{"type": "string"}`))
		var target *InvalidShapeReferenceError
		if !errors.As(err, &target) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("nil reference fails", func(t *testing.T) {
		_, err := resolver.ResolveShapeRef(nil)
		var target *InvalidShapeReferenceError
		if !errors.As(err, &target) {
			t.Fatal("unexpected error", err)
		}
	})
}

func TestShapeSerialization(t *testing.T) {
	t.Run("locationName surfaces under the name key", func(t *testing.T) {
		resolver := NewShapeResolver(mustDoc(t, shapesFixture))
		shape, err := resolver.GetShapeByName("StringType")
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]any{"name": "base-name"}
		if diff := cmp.Diff(want, shape.Serialization()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("reference-site traits win over definition traits", func(t *testing.T) {
		resolver := NewShapeResolver(mustDoc(t, shapesFixture))
		config, err := resolver.GetShapeByName("Config")
		if err != nil {
			t.Fatal(err)
		}
		members, err := config.Members()
		if err != nil {
			t.Fatal(err)
		}
		memberB, _ := members.Get("B")
		want := map[string]any{"name": "b-site"}
		if diff := cmp.Diff(want, memberB.Serialization()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("distinct reference sites do not contaminate each other", func(t *testing.T) {
		resolver := NewShapeResolver(mustDoc(t, shapesFixture))
		config, err := resolver.GetShapeByName("Config")
		if err != nil {
			t.Fatal(err)
		}
		members, err := config.Members()
		if err != nil {
			t.Fatal(err)
		}
		memberA, _ := members.Get("A")
		memberB, _ := members.Get("B")
		if got := memberA.Serialization()["name"]; got != "base-name" {
			t.Fatal("unexpected name for A", got)
		}
		if got := memberB.Serialization()["name"]; got != "b-site" {
			t.Fatal("unexpected name for B", got)
		}
		if memberA.Documentation() != "def docs" {
			t.Fatal("unexpected documentation for A")
		}
	})

	t.Run("reference-site documentation overrides", func(t *testing.T) {
		resolver := NewShapeResolver(mustDoc(t, shapesFixture))
		config, err := resolver.GetShapeByName("Config")
		if err != nil {
			t.Fatal(err)
		}
		members, err := config.Members()
		if err != nil {
			t.Fatal(err)
		}
		memberC, _ := members.Get("C")
		if memberC.Documentation() != "ref docs" {
			t.Fatal("unexpected documentation", memberC.Documentation())
		}
	})

	t.Run("repeated access returns an equal bag", func(t *testing.T) {
		resolver := NewShapeResolver(mustDoc(t, shapesFixture))
		shape, err := resolver.GetShapeByName("TagList")
		if err != nil {
			t.Fatal(err)
		}
		first := shape.Serialization()
		second := shape.Serialization()
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("resolution does not mutate the schema document", func(t *testing.T) {
		doc := mustDoc(t, shapesFixture)
		before, err := json.Marshal(doc)
		if err != nil {
			t.Fatal(err)
		}
		resolver := NewShapeResolver(doc)
		config, err := resolver.GetShapeByName("Config")
		if err != nil {
			t.Fatal(err)
		}
		members, err := config.Members()
		if err != nil {
			t.Fatal(err)
		}
		for _, name := range members.Names() {
			member, _ := members.Get(name)
			_ = member.Serialization()
			_ = member.Metadata()
		}
		after, err := json.Marshal(doc)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(string(before), string(after)); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestShapeMetadata(t *testing.T) {
	resolver := NewShapeResolver(mustDoc(t, shapesFixture))

	t.Run("constraint traits land in the metadata bag", func(t *testing.T) {
		shape, err := resolver.GetShapeByName("StringType")
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]any{
			"min":  int64(1),
			"max":  int64(9),
			"enum": []any{"on", "off"},
		}
		if diff := cmp.Diff(want, shape.Metadata()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("sensitive trait", func(t *testing.T) {
		secret, err := resolver.GetShapeByName("Secret")
		if err != nil {
			t.Fatal(err)
		}
		if !secret.Sensitive() {
			t.Fatal("expected sensitive")
		}
		other, err := resolver.GetShapeByName("StringType")
		if err != nil {
			t.Fatal(err)
		}
		if other.Sensitive() {
			t.Fatal("expected not sensitive")
		}
	})

	t.Run("required members", func(t *testing.T) {
		config, err := resolver.GetShapeByName("Config")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"A"}, config.RequiredMembers()); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestShapeMembers(t *testing.T) {
	resolver := NewShapeResolver(mustDoc(t, shapesFixture))

	t.Run("declaration order is preserved", func(t *testing.T) {
		config, err := resolver.GetShapeByName("Config")
		if err != nil {
			t.Fatal(err)
		}
		members, err := config.Members()
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"A", "B", "C", "Tags", "Attributes"}
		if diff := cmp.Diff(want, members.Names()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("list element and map key and value resolve", func(t *testing.T) {
		tags, err := resolver.GetShapeByName("TagList")
		if err != nil {
			t.Fatal(err)
		}
		element, err := tags.Member()
		if err != nil {
			t.Fatal(err)
		}
		if element.Type() != TypeString {
			t.Fatal("unexpected element type", element.Type())
		}
		if element.Serialization()["name"] != "item" {
			t.Fatal("unexpected element name")
		}
		attrs, err := resolver.GetShapeByName("AttrMap")
		if err != nil {
			t.Fatal(err)
		}
		key, err := attrs.Key()
		if err != nil {
			t.Fatal(err)
		}
		value, err := attrs.Value()
		if err != nil {
			t.Fatal(err)
		}
		if key.Serialization()["name"] != "k" || value.Serialization()["name"] != "v" {
			t.Fatal("unexpected key or value names")
		}
	})

	t.Run("recursive shapes resolve lazily", func(t *testing.T) {
		node, err := resolver.GetShapeByName("Node")
		if err != nil {
			t.Fatal(err)
		}
		members, err := node.Members()
		if err != nil {
			t.Fatal(err)
		}
		next, _ := members.Get("Next")
		if next.Name() != "Node" {
			t.Fatal("unexpected recursive member", next.Name())
		}
		nested, err := next.Members()
		if err != nil {
			t.Fatal(err)
		}
		if nested.Len() != 2 {
			t.Fatal("unexpected nested member count", nested.Len())
		}
	})

	t.Run("Members panics on a non-structure shape", func(t *testing.T) {
		shape, err := resolver.GetShapeByName("StringType")
		if err != nil {
			t.Fatal(err)
		}
		defer func() {
			if recover() == nil {
				t.Fatal("expected a panic")
			}
		}()
		_, _ = shape.Members()
	})
}

func TestShapeString(t *testing.T) {
	resolver := NewShapeResolver(mustDoc(t, shapesFixture))
	shape, err := resolver.GetShapeByName("Config")
	if err != nil {
		t.Fatal(err)
	}
	if got := shape.String(); got != "structure(Config)" {
		t.Fatal("unexpected string", got)
	}
}
