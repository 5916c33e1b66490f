package serialize

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const restJSONSchema = `{
	"metadata": {"protocol": "rest-json", "apiVersion": "2022-06-01"},
	"operations": {
		"PutObject": {
			"name": "PutObject",
			"http": {"method": "PUT", "requestUri": "/buckets/{Bucket}/objects/{Key+}"},
			"input": {"shape": "PutObjectRequest"}
		},
		"ListObjects": {
			"name": "ListObjects",
			"http": {"method": "GET", "requestUri": "/buckets/{Bucket}/objects?list-type=2"},
			"input": {"shape": "ListObjectsRequest"}
		},
		"CreateNote": {
			"name": "CreateNote",
			"http": {"method": "POST", "requestUri": "/notes"},
			"input": {"shape": "CreateNoteRequest"}
		},
		"UploadPart": {
			"name": "UploadPart",
			"http": {"method": "PUT", "requestUri": "/upload/{Name}"},
			"input": {"shape": "UploadPartRequest"}
		},
		"PutDocument": {
			"name": "PutDocument",
			"http": {"method": "PUT", "requestUri": "/documents/{Name}"},
			"input": {"shape": "PutDocumentRequest"}
		}
	},
	"shapes": {
		"PutObjectRequest": {
			"type": "structure",
			"members": {
				"Bucket": {"shape": "String", "location": "uri"},
				"Key": {"shape": "String", "location": "uri"},
				"ContentKind": {"shape": "String", "location": "header", "locationName": "x-svc-content-kind"},
				"Metadata": {"shape": "StringMap", "location": "headers", "locationName": "x-svc-meta-"},
				"Body": {"shape": "String"}
			}
		},
		"ListObjectsRequest": {
			"type": "structure",
			"members": {
				"Bucket": {"shape": "String", "location": "uri"},
				"Prefix": {"shape": "String", "location": "querystring", "locationName": "prefix"},
				"MaxKeys": {"shape": "Integer", "location": "querystring", "locationName": "max-keys"},
				"Since": {"shape": "Timestamp", "location": "querystring", "locationName": "since"},
				"Names": {"shape": "StringList", "location": "querystring", "locationName": "name"}
			}
		},
		"CreateNoteRequest": {
			"type": "structure",
			"members": {
				"Title": {"shape": "String"},
				"Body": {"shape": "String"}
			}
		},
		"UploadPartRequest": {
			"type": "structure",
			"payload": "Data",
			"members": {
				"Name": {"shape": "String", "location": "uri"},
				"Data": {"shape": "Blob"}
			}
		},
		"PutDocumentRequest": {
			"type": "structure",
			"payload": "Document",
			"members": {
				"Name": {"shape": "String", "location": "uri"},
				"Document": {"shape": "Document"}
			}
		},
		"Document": {
			"type": "structure",
			"members": {
				"Author": {"shape": "String"},
				"Text": {"shape": "String"}
			}
		},
		"StringList": {"type": "list", "member": {"shape": "String"}},
		"StringMap": {"type": "map", "key": {"shape": "String"}, "value": {"shape": "String"}},
		"String": {"type": "string"},
		"Blob": {"type": "blob"},
		"Integer": {"type": "integer"},
		"Timestamp": {"type": "timestamp"}
	}
}`

func TestRESTSerializerPartitioning(t *testing.T) {
	serializer, err := ForProtocol("rest-json")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("distributes params across uri, headers, and body", func(t *testing.T) {
		op := testOperation(t, restJSONSchema, "PutObject")
		req, err := serializer.SerializeToRequest(map[string]any{
			"Bucket":      "photos",
			"Key":         "2022/06/cat.png",
			"ContentKind": "image",
			"Metadata":    map[string]any{"owner": "alice"},
			"Body":        "raw-bytes",
		}, op)
		if err != nil {
			t.Fatal(err)
		}
		if req.Method != "PUT" {
			t.Fatal("unexpected method", req.Method)
		}
		// the greedy {Key+} label keeps its slashes
		if req.URLPath != "/buckets/photos/objects/2022/06/cat.png" {
			t.Fatal("unexpected path", req.URLPath)
		}
		if got := req.Headers.Get("x-svc-content-kind"); got != "image" {
			t.Fatal("unexpected header", got)
		}
		if got := req.Headers.Get("x-svc-meta-owner"); got != "alice" {
			t.Fatal("unexpected prefixed header", got)
		}
		if diff := cmp.Diff(`{"Body":"raw-bytes"}`, string(req.Body)); diff != "" {
			t.Fatal(diff)
		}
		if got := req.Headers.Get("Content-Type"); got != "application/json" {
			t.Fatal("unexpected content type", got)
		}
	})

	t.Run("querystring members land in the query map", func(t *testing.T) {
		op := testOperation(t, restJSONSchema, "ListObjects")
		req, err := serializer.SerializeToRequest(map[string]any{
			"Bucket":  "photos",
			"Prefix":  "2022/",
			"MaxKeys": 50,
			"Since":   time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC),
			"Names":   []any{"a", "b"},
		}, op)
		if err != nil {
			t.Fatal(err)
		}
		if req.URLPath != "/buckets/photos/objects" {
			t.Fatal("unexpected path", req.URLPath)
		}
		// the template's baked-in query part survives alongside params
		if got := req.Query.Get("list-type"); got != "2" {
			t.Fatal("unexpected baked query param", got)
		}
		if got := req.Query.Get("prefix"); got != "2022/" {
			t.Fatal("unexpected prefix", got)
		}
		if got := req.Query.Get("max-keys"); got != "50" {
			t.Fatal("unexpected max-keys", got)
		}
		// querystring timestamps default to epoch seconds
		if got := req.Query.Get("since"); got != "1654041600" {
			t.Fatal("unexpected since", got)
		}
		if diff := cmp.Diff([]string{"a", "b"}, req.Query["name"]); diff != "" {
			t.Fatal(diff)
		}
		if len(req.Body) != 0 {
			t.Fatal("expected empty body")
		}
	})

	t.Run("plain body members encode as a json document", func(t *testing.T) {
		op := testOperation(t, restJSONSchema, "CreateNote")
		req, err := serializer.SerializeToRequest(map[string]any{
			"Title": "groceries",
			"Body":  "milk",
		}, op)
		if err != nil {
			t.Fatal(err)
		}
		want := `{"Title":"groceries","Body":"milk"}`
		if diff := cmp.Diff(want, string(req.Body)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("blob payload becomes the raw body", func(t *testing.T) {
		op := testOperation(t, restJSONSchema, "UploadPart")
		req, err := serializer.SerializeToRequest(map[string]any{
			"Name": "part-1",
			"Data": []byte{0x01, 0x02, 0x03},
		}, op)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]byte{0x01, 0x02, 0x03}, req.Body); diff != "" {
			t.Fatal(diff)
		}
		if got := req.Headers.Get("Content-Type"); got != "application/octet-stream" {
			t.Fatal("unexpected content type", got)
		}
	})

	t.Run("structure payload becomes the body document root", func(t *testing.T) {
		op := testOperation(t, restJSONSchema, "PutDocument")
		req, err := serializer.SerializeToRequest(map[string]any{
			"Name": "readme",
			"Document": map[string]any{
				"Author": "bob",
				"Text":   "hello",
			},
		}, op)
		if err != nil {
			t.Fatal(err)
		}
		want := `{"Author":"bob","Text":"hello"}`
		if diff := cmp.Diff(want, string(req.Body)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("missing uri parameter fails", func(t *testing.T) {
		op := testOperation(t, restJSONSchema, "PutObject")
		_, err := serializer.SerializeToRequest(map[string]any{
			"Bucket": "photos",
		}, op)
		var target *SerializationError
		if !errors.As(err, &target) {
			t.Fatal("unexpected error", err)
		}
		if target.Field != "Key" {
			t.Fatal("unexpected field", target.Field)
		}
	})

	t.Run("non-greedy uri parameters are path escaped", func(t *testing.T) {
		op := testOperation(t, restJSONSchema, "PutObject")
		req, err := serializer.SerializeToRequest(map[string]any{
			"Bucket": "my photos",
			"Key":    "cat.png",
		}, op)
		if err != nil {
			t.Fatal(err)
		}
		if req.URLPath != "/buckets/my%20photos/objects/cat.png" {
			t.Fatal("unexpected path", req.URLPath)
		}
	})
}
