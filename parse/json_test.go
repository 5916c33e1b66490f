package parse

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nimbus-sdk/nimbus-go/wire"
)

const jsonSchema = `{
	"metadata": {"protocol": "json", "apiVersion": "2021-03-15", "targetPrefix": "LedgerService"},
	"operations": {
		"GetRecord": {
			"name": "GetRecord",
			"http": {"method": "POST", "requestUri": "/"},
			"output": {"shape": "GetRecordResponse"}
		},
		"Ping": {
			"name": "Ping",
			"http": {"method": "POST", "requestUri": "/"}
		}
	},
	"shapes": {
		"GetRecordResponse": {
			"type": "structure",
			"members": {
				"Stream": {"shape": "String"},
				"Data": {"shape": "Blob"},
				"Count": {"shape": "Integer"},
				"Ratio": {"shape": "Double"},
				"Active": {"shape": "Boolean"},
				"When": {"shape": "Timestamp"},
				"Labels": {"shape": "LabelMap"},
				"Parts": {"shape": "PartList"},
				"legacyName": {"shape": "String", "locationName": "LegacyName"}
			}
		},
		"PartList": {"type": "list", "member": {"shape": "Integer"}},
		"LabelMap": {"type": "map", "key": {"shape": "String"}, "value": {"shape": "String"}},
		"String": {"type": "string"},
		"Blob": {"type": "blob"},
		"Integer": {"type": "integer"},
		"Double": {"type": "double"},
		"Boolean": {"type": "boolean"},
		"Timestamp": {"type": "timestamp"}
	}
}`

func TestJSONParser(t *testing.T) {
	parser, err := ForProtocol("json")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("parses typed scalars, lists, and maps", func(t *testing.T) {
		op := testOperation(t, jsonSchema, "GetRecord")
		resp := &wire.Response{
			StatusCode: 200,
			Headers:    http.Header{},
			Body: []byte(`{
				"Stream": "events",
				"Data": "aGVsbG8=",
				"Count": 7,
				"Ratio": 0.5,
				"Active": true,
				"When": 1615804200,
				"Labels": {"a": "one"},
				"Parts": [1, 2],
				"LegacyName": "old"
			}`),
		}
		result, err := parser.Parse(resp, op)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]any{
			"Stream":     "events",
			"Data":       []byte("hello"),
			"Count":      int64(7),
			"Ratio":      0.5,
			"Active":     true,
			"When":       time.Unix(1615804200, 0).UTC(),
			"Labels":     map[string]any{"a": "one"},
			"Parts":      []any{int64(1), int64(2)},
			"legacyName": "old",
		}
		if diff := cmp.Diff(want, result); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("surfaces the request id from the header", func(t *testing.T) {
		op := testOperation(t, jsonSchema, "GetRecord")
		resp := &wire.Response{
			StatusCode: 200,
			Headers:    http.Header{"X-Request-Id": []string{"req-123"}},
			Body:       []byte(`{"Stream": "events"}`),
		}
		result, err := parser.Parse(resp, op)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]any{
			"Stream":           "events",
			"ResponseMetadata": map[string]any{"RequestId": "req-123"},
		}
		if diff := cmp.Diff(want, result); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("ignores wire fields absent from the output shape", func(t *testing.T) {
		op := testOperation(t, jsonSchema, "GetRecord")
		resp := &wire.Response{
			StatusCode: 200,
			Headers:    http.Header{},
			Body:       []byte(`{"Stream": "events", "Surprise": 42}`),
		}
		result, err := parser.Parse(resp, op)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]any{"Stream": "events"}
		if diff := cmp.Diff(want, result); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("null members are dropped", func(t *testing.T) {
		op := testOperation(t, jsonSchema, "GetRecord")
		resp := &wire.Response{
			StatusCode: 200,
			Headers:    http.Header{},
			Body:       []byte(`{"Stream": null, "Count": 3}`),
		}
		result, err := parser.Parse(resp, op)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]any{"Count": int64(3)}
		if diff := cmp.Diff(want, result); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("empty body parses as an empty result", func(t *testing.T) {
		op := testOperation(t, jsonSchema, "GetRecord")
		resp := &wire.Response{StatusCode: 200, Headers: http.Header{}}
		result, err := parser.Parse(resp, op)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(map[string]any{}, result); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("operation without output still surfaces the request id", func(t *testing.T) {
		op := testOperation(t, jsonSchema, "Ping")
		resp := &wire.Response{
			StatusCode: 200,
			Headers:    http.Header{"X-Request-Id": []string{"req-9"}},
			Body:       []byte(`{"anything": "ignored"}`),
		}
		result, err := parser.Parse(resp, op)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]any{
			"ResponseMetadata": map[string]any{"RequestId": "req-9"},
		}
		if diff := cmp.Diff(want, result); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("invalid json fails with a malformed response error", func(t *testing.T) {
		op := testOperation(t, jsonSchema, "GetRecord")
		resp := &wire.Response{
			StatusCode: 200,
			Headers:    http.Header{},
			Body:       []byte(`{not json`),
		}
		_, err := parser.Parse(resp, op)
		var target *MalformedResponseError
		if !errors.As(err, &target) {
			t.Fatal("unexpected error", err)
		}
		if target.Protocol != "json" || target.Operation != "GetRecord" {
			t.Fatal("unexpected error fields", target.Protocol, target.Operation)
		}
	})

	t.Run("type mismatch fails", func(t *testing.T) {
		op := testOperation(t, jsonSchema, "GetRecord")
		resp := &wire.Response{
			StatusCode: 200,
			Headers:    http.Header{},
			Body:       []byte(`{"Count": "nope"}`),
		}
		_, err := parser.Parse(resp, op)
		var target *MalformedResponseError
		if !errors.As(err, &target) {
			t.Fatal("unexpected error", err)
		}
	})
}

func TestParseOverride(t *testing.T) {
	override := func(resp *wire.Response, result map[string]any) error {
		result["RawStatus"] = int64(resp.StatusCode)
		delete(result, "Stream")
		return nil
	}
	parser, err := ForProtocolWithOptions("json", nil, map[string]Override{
		"GetRecord": override,
	})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("registered override rewrites the tree", func(t *testing.T) {
		op := testOperation(t, jsonSchema, "GetRecord")
		resp := &wire.Response{
			StatusCode: 200,
			Headers:    http.Header{},
			Body:       []byte(`{"Stream": "events", "Count": 1}`),
		}
		result, err := parser.Parse(resp, op)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]any{
			"Count":     int64(1),
			"RawStatus": int64(200),
		}
		if diff := cmp.Diff(want, result); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("other operations are untouched", func(t *testing.T) {
		op := testOperation(t, jsonSchema, "Ping")
		resp := &wire.Response{StatusCode: 200, Headers: http.Header{}}
		result, err := parser.Parse(resp, op)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(map[string]any{}, result); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("override failure propagates", func(t *testing.T) {
		boom := errors.New("boom")
		failing, err := ForProtocolWithOptions("json", nil, map[string]Override{
			"GetRecord": func(resp *wire.Response, result map[string]any) error {
				return boom
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		op := testOperation(t, jsonSchema, "GetRecord")
		resp := &wire.Response{StatusCode: 200, Headers: http.Header{}, Body: []byte(`{}`)}
		if _, err := failing.Parse(resp, op); !errors.Is(err, boom) {
			t.Fatal("unexpected error", err)
		}
	})
}
