package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTags(t *testing.T) {
	testCases := []struct {
		name string
		raw  []string
		want []string
	}{
		{name: "nil input", raw: nil, want: []string{}},
		{name: "trims and drops empty", raw: []string{"  denim ", "", "   "}, want: []string{"denim"}},
		{name: "keeps first occurrence order", raw: []string{"blue", "denim", "blue", " denim", "summer"}, want: []string{"blue", "denim", "summer"}},
		{name: "case sensitive", raw: []string{"Blue", "blue"}, want: []string{"Blue", "blue"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeTags(tc.raw))
		})
	}
}

func TestTagInputUnmarshal(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		want    TagInput
		wantErr bool
	}{
		{name: "comma separated string", body: `{"tags": "denim, blue,,denim "}`, want: TagInput{"denim", "blue"}},
		{name: "list of strings", body: `{"tags": [" vintage", "vintage", "wool"]}`, want: TagInput{"vintage", "wool"}},
		{name: "empty string", body: `{"tags": ""}`, want: TagInput{}},
		{name: "null", body: `{"tags": null}`, want: nil},
		{name: "absent", body: `{}`, want: nil},
		{name: "number is rejected", body: `{"tags": 42}`, wantErr: true},
		{name: "mixed list is rejected", body: `{"tags": ["a", 1]}`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var req CreateItemRequest
			err := json.Unmarshal([]byte(tc.body), &req)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, req.Tags)
		})
	}
}
