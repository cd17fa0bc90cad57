package tags

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want List
	}{
		{name: "nil", in: nil, want: List{}},
		{name: "string slice", in: []string{" ai ", "robotics", ""}, want: List{"ai", "robotics"}},
		{name: "interface slice", in: []interface{}{"music", 3, "dance"}, want: List{"music", "dance"}},
		{name: "json array string", in: `["coding", "chess"]`, want: List{"coding", "chess"}},
		{name: "json encoded string of csv", in: `"coding, chess"`, want: List{"coding", "chess"}},
		{name: "double encoded json array", in: `"[\"a\",\"b\"]"`, want: List{"a", "b"}},
		{name: "csv", in: "music,  drama ,,art", want: List{"music", "drama", "art"}},
		{name: "broken json array falls back to csv", in: `[music, 'art'`, want: List{"music", "art"}},
		{name: "duplicates case-insensitive", in: []string{"AI", "ai", "Ai "}, want: List{"AI"}},
		{name: "bytes", in: []byte("x,y"), want: List{"x", "y"}},
		{name: "unsupported type", in: 42, want: List{}},
		{name: "null literal", in: "null", want: List{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestListJSON(t *testing.T) {
	var rec struct {
		Tags List `json:"tags"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"tags":"a,b"}`), &rec))
	assert.Equal(t, List{"a", "b"}, rec.Tags)

	require.NoError(t, json.Unmarshal([]byte(`{"tags":["c"]}`), &rec))
	assert.Equal(t, List{"c"}, rec.Tags)

	require.NoError(t, json.Unmarshal([]byte(`{"tags":null}`), &rec))
	assert.Equal(t, List{}, rec.Tags)

	data, err := json.Marshal(struct {
		Tags List `json:"tags"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":[]}`, string(data))
}

func TestScanValue(t *testing.T) {
	v, err := List{"a", "b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, v)

	var l List
	require.NoError(t, l.Scan(v))
	assert.Equal(t, List{"a", "b"}, l)
	require.NoError(t, l.Scan([]byte("x, y")))
	assert.Equal(t, List{"x", "y"}, l)
	assert.Error(t, l.Scan(1.5))
}

func TestContainsAndIntersect(t *testing.T) {
	l := List{"Projector", "Sound System"}
	assert.True(t, l.Contains("projector"))
	assert.False(t, l.Contains("stage"))
	assert.Equal(t, List{"Sound System"}, l.Intersect(List{"sound system", "stage"}))
	assert.True(t, l.MatchFold("SOUND"))
}
