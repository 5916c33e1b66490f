package schemaload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nimbus-sdk/nimbus-go/internal/ordered"
)

func writeTempDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadDocument(t *testing.T) {
	t.Run("tolerates comments and trailing commas", func(t *testing.T) {
		path := writeTempDocument(t, `{
			// service identity
			"metadata": {
				"protocol": "json",
				"apiVersion": "2024-01-01", // trailing comma below
			},
		}`)
		doc, err := ReadDocument(path)
		if err != nil {
			t.Fatal(err)
		}
		raw, found := doc.Get("metadata")
		if !found {
			t.Fatal("expected metadata object")
		}
		metadata, good := raw.(*ordered.Map)
		if !good {
			t.Fatalf("expected object, got %T", raw)
		}
		if got := metadata.GetString("protocol"); got != "json" {
			t.Fatal("unexpected protocol", got)
		}
	})

	t.Run("preserves key order", func(t *testing.T) {
		path := writeTempDocument(t, `{"zebra": 1, "apple": 2, "mango": 3}`)
		doc, err := ReadDocument(path)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"zebra", "apple", "mango"}, doc.Keys()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		if _, err := ReadDocument(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("invalid json fails", func(t *testing.T) {
		if _, err := ReadDocument(writeTempDocument(t, `{broken`)); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("non-object root fails", func(t *testing.T) {
		if _, err := ReadDocument(writeTempDocument(t, `[1, 2, 3]`)); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestReadServiceModel(t *testing.T) {
	path := writeTempDocument(t, `{
		"metadata": {"protocol": "json", "apiVersion": "2024-01-01"},
		"operations": {
			"Ping": {"name": "Ping", "http": {"method": "POST", "requestUri": "/"}}
		},
		"shapes": {}
	}`)
	sm, err := ReadServiceModel(path)
	if err != nil {
		t.Fatal(err)
	}
	protocol, err := sm.Protocol()
	if err != nil {
		t.Fatal(err)
	}
	if protocol != "json" {
		t.Fatal("unexpected protocol", protocol)
	}
}

func TestReadPaginationModel(t *testing.T) {
	t.Run("loads a pagination document", func(t *testing.T) {
		path := writeTempDocument(t, `{
			"pagination": {
				"ListUsers": {
					"input_token": "Marker",
					"output_token": "NextMarker",
					"result_key": "Users",
				},
			},
		}`)
		pm, err := ReadPaginationModel(path)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"ListUsers"}, pm.OperationNames()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("document without pagination key fails", func(t *testing.T) {
		if _, err := ReadPaginationModel(writeTempDocument(t, `{"other": true}`)); err == nil {
			t.Fatal("expected an error")
		}
	})
}
