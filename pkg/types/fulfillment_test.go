package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInputSchemaMissingRequired(t *testing.T) {
	schema := InputSchema{
		{ID: "nickname", Label: "Nickname"},
		{ID: "email", Label: "Account email", Required: true},
		{ID: "server", Label: "Server", Required: true},
	}

	field, missing := schema.MissingRequired(ManualInput{"email": "   "})
	require.True(t, missing)
	require.Equal(t, "Account email", field.Label)

	field, missing = schema.MissingRequired(ManualInput{"email": "a@b.co"})
	require.True(t, missing)
	require.Equal(t, "server", field.ID)

	_, missing = schema.MissingRequired(ManualInput{"email": "a@b.co", "server": "eu"})
	require.False(t, missing)

	_, missing = InputSchema(nil).MissingRequired(nil)
	require.False(t, missing)
}

func TestInputSchemaScanAcceptsBytesAndStrings(t *testing.T) {
	var schema InputSchema
	require.NoError(t, schema.Scan([]byte(`[{"id":"email","label":"Email","required":true}]`)))
	require.Len(t, schema, 1)
	require.True(t, schema[0].Required)

	var input ManualInput
	require.NoError(t, input.Scan(`{"email":"x@y.z"}`))
	require.Equal(t, "x@y.z", input["email"])

	var delivered DeliveredData
	require.NoError(t, delivered.Scan(nil))
	require.Empty(t, delivered.Credentials)

	require.Error(t, schema.Scan(42))
}

func TestJSONValueKeepsDocumentsVerbatim(t *testing.T) {
	var req struct {
		Payloads []JSONValue `json:"payloads"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"payloads":[{"username":"a","password":"b"},"code-1",42]}`), &req))
	require.Len(t, req.Payloads, 3)
	require.JSONEq(t, `{"username":"a","password":"b"}`, string(req.Payloads[0]))

	stored, err := req.Payloads[0].Value()
	require.NoError(t, err)
	var scanned JSONValue
	require.NoError(t, scanned.Scan([]byte(stored.(string))))
	require.JSONEq(t, `{"username":"a","password":"b"}`, string(scanned))

	delivered := DeliveredData{Credentials: req.Payloads[:2], Note: "enjoy"}
	raw, err := json.Marshal(delivered)
	require.NoError(t, err)
	require.JSONEq(t, `{"credentials":[{"username":"a","password":"b"},"code-1"],"note":"enjoy"}`, string(raw))

	var back DeliveredData
	require.NoError(t, back.Scan(string(raw)))
	require.JSONEq(t, `"code-1"`, string(back.Credentials[1]))
	require.Empty(t, back.Payload)

	_, err = JSONValue(`{broken`).Value()
	require.Error(t, err)
}

func TestJSONValueIsBlank(t *testing.T) {
	for _, blank := range []JSONValue{nil, JSONValue(" "), JSONValue("null"), JSONString("   ")} {
		require.True(t, blank.IsBlank(), "%q", string(blank))
	}
	for _, filled := range []JSONValue{JSONString("k1"), JSONValue(`{}`), JSONValue(`0`)} {
		require.False(t, filled.IsBlank(), "%q", string(filled))
	}
	require.Equal(t, "{\n  \"a\": 1\n}", JSONValue(`{"a":1}`).Pretty())
}
