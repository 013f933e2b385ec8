package grader

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeTestCases(t *testing.T) {
	cases, err := DecodeTestCases([]byte(`[{"args": [5, 3], "expected": 8}, {"args": [], "expected": null}]`))
	require.NoError(t, err)
	require.Len(t, cases, 2)
	require.Equal(t, []json.RawMessage{json.RawMessage(`5`), json.RawMessage(`3`)}, cases[0].Args)
	require.Equal(t, json.RawMessage(`8`), cases[0].Expected)
	require.Empty(t, cases[1].Args)
	require.Equal(t, json.RawMessage(`null`), cases[1].Expected)
}

func TestDecodeTestCasesUnwrapsStringDocument(t *testing.T) {
	cases, err := DecodeTestCases([]byte(`"[{\"args\": [1], \"expected\": 2}]"`))
	require.NoError(t, err)
	require.Len(t, cases, 1)
}

func TestDecodeTestCasesEmptyList(t *testing.T) {
	cases, err := DecodeTestCases([]byte(`[]`))
	require.NoError(t, err)
	require.Empty(t, cases)
}

func TestDecodeTestCasesRejectsInvalidShapes(t *testing.T) {
	for _, doc := range []string{
		``,
		`{}`,
		`[{"args": 5, "expected": 1}]`,
		`[{"args": []}]`,
		`[{"input": "5", "expected_output": "25"}]`,
		`[1, 2]`,
		`not json`,
	} {
		_, err := DecodeTestCases([]byte(doc))
		require.ErrorIs(t, err, ErrInvalidTestCases, doc)
	}
}
