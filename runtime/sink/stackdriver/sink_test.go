package stackdriver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeverityFromWeight(t *testing.T) {
	cases := map[int]string{
		60: "CRITICAL", 65: "CRITICAL",
		50: "ERROR", 55: "ERROR",
		40: "WARNING",
		30: "INFO",
		20: "DEBUG",
		10: "DEFAULT",
		0:  "DEFAULT",
	}
	for weight, want := range cases {
		require.Equal(t, want, severityFromWeight(weight))
	}
}

func TestBuildEntry_TextPayloadWhenNoExtraFields(t *testing.T) {
	b := &builder{opt: Options{ProjectID: "proj", LogName: "app log"}}
	raw := []byte(`{"level":30,"levelLabel":"info","time":1700000000000,"hostname":"h","pid":1,"msg":"hi"}` + "\n")

	entry, err := b.buildEntry(raw)
	require.NoError(t, err)
	require.Equal(t, "projects/proj/logs/app%20log", entry["logName"])
	require.Equal(t, "INFO", entry["severity"])
	require.Equal(t, "hi", entry["textPayload"])
	require.Nil(t, entry["jsonPayload"])
}

func TestBuildEntry_JSONPayloadWhenDataFieldsPresent(t *testing.T) {
	b := &builder{opt: Options{ProjectID: "proj", LogName: "applog"}}
	raw := []byte(`{"level":50,"time":1700000000000,"hostname":"h","pid":1,"order_id":42,"msg":"failed"}`)

	entry, err := b.buildEntry(raw)
	require.NoError(t, err)
	require.Equal(t, "ERROR", entry["severity"])
	payload, ok := entry["jsonPayload"].(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 42, payload["order_id"])
	require.Equal(t, "failed", payload["msg"])
	require.Nil(t, entry["textPayload"])
}

func TestParseServiceAccount_RequiresFields(t *testing.T) {
	_, err := ParseServiceAccount([]byte(`{"client_email":"a@b.c"}`))
	require.Error(t, err)

	sa, err := ParseServiceAccount([]byte(`{"client_email":"a@b.c","private_key":"pem"}`))
	require.NoError(t, err)
	require.Equal(t, "a@b.c", sa.ClientEmail)
}
