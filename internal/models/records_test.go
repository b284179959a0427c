package models

import (
	"encoding/json"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemID_MarshalJSON(t *testing.T) {
	tests := []struct {
		id   ItemID
		want string
	}{
		{id: "12", want: `12`},
		{id: "-3", want: `-3`},
		{id: "0", want: `0`},
		{id: "007", want: `"007"`},
		{id: "0012", want: `"0012"`},
		{id: "+5", want: `"+5"`},
		{id: "-0", want: `"-0"`},
		{id: "a-1", want: `"a-1"`},
		{id: "99999999999999999999", want: `"99999999999999999999"`},
		{id: "", want: `null`},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			data, err := json.Marshal(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))

			data, err = gojson.Marshal(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestMenuItemRecord_RoundTrip(t *testing.T) {
	for _, id := range []ItemID{"007", "+5", "12"} {
		t.Run(string(id), func(t *testing.T) {
			in := []MenuItemRecord{{ID: id, Name: "Classic", Price: "1200.00", Featured: true}}

			data, err := gojson.Marshal(in)
			require.NoError(t, err)
			assert.True(t, json.Valid(data), "invalid JSON: %s", data)

			var out []MenuItemRecord
			require.NoError(t, gojson.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}
