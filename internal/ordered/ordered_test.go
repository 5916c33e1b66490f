package ordered

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode(t *testing.T) {

	t.Run("objects preserve key declaration order", func(t *testing.T) {
		value, err := Decode([]byte(`{"zeta": 1, "alpha": 2, "mu": {"b": 1, "a": 2}}`))
		if err != nil {
			t.Fatal(err)
		}
		object := value.(*Map)
		if diff := cmp.Diff([]string{"zeta", "alpha", "mu"}, object.Keys()); diff != "" {
			t.Fatal(diff)
		}
		inner, _ := object.Get("mu")
		if diff := cmp.Diff([]string{"b", "a"}, inner.(*Map).Keys()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("integral numbers decode to int64", func(t *testing.T) {
		value, err := Decode([]byte(`{"min": 1, "max": 128, "ratio": 0.5}`))
		if err != nil {
			t.Fatal(err)
		}
		object := value.(*Map)
		min, _ := object.Get("min")
		if _, good := min.(int64); !good {
			t.Fatalf("expected int64, got %T", min)
		}
		ratio, _ := object.Get("ratio")
		if _, good := ratio.(float64); !good {
			t.Fatalf("expected float64, got %T", ratio)
		}
	})

	t.Run("arrays and scalars decode", func(t *testing.T) {
		value, err := Decode([]byte(`["a", true, null]`))
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]any{"a", true, nil}, value); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("trailing data is an error", func(t *testing.T) {
		if _, err := Decode([]byte(`{} {}`)); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestMap(t *testing.T) {

	t.Run("Set keeps first insertion position", func(t *testing.T) {
		m := NewMap()
		m.Set("a", 1)
		m.Set("b", 2)
		m.Set("a", 3)
		if diff := cmp.Diff([]string{"a", "b"}, m.Keys()); diff != "" {
			t.Fatal(diff)
		}
		value, _ := m.Get("a")
		if value != 3 {
			t.Fatal("expected 3, got", value)
		}
	})

	t.Run("Delete removes key and order entry", func(t *testing.T) {
		m := NewMap()
		m.Set("a", 1)
		m.Set("b", 2)
		m.Delete("a")
		if diff := cmp.Diff([]string{"b"}, m.Keys()); diff != "" {
			t.Fatal(diff)
		}
		if _, found := m.Get("a"); found {
			t.Fatal("key should be gone")
		}
	})

	t.Run("Copy is independent of the original", func(t *testing.T) {
		m := NewMap()
		m.Set("a", 1)
		clone := m.Copy()
		clone.Set("b", 2)
		if m.Len() != 1 || clone.Len() != 2 {
			t.Fatal("copy mutated the original")
		}
	})

	t.Run("MarshalJSON emits keys in order", func(t *testing.T) {
		m := NewMap()
		m.Set("zeta", int64(1))
		m.Set("alpha", "x")
		data, err := m.MarshalJSON()
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(`{"zeta":1,"alpha":"x"}`, string(data)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("UnmarshalJSON round-trips", func(t *testing.T) {
		var m Map
		if err := m.UnmarshalJSON([]byte(`{"b": 1, "a": 2}`)); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"b", "a"}, m.Keys()); diff != "" {
			t.Fatal(diff)
		}
	})
}
