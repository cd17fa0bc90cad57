package status

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryStatusHasABadge(t *testing.T) {
	for _, s := range append(All(), Unknown) {
		b, ok := badges[s]
		if assert.True(t, ok, "missing badge for %s", s) {
			assert.Equal(t, b, s.Badge())
			assert.NotEmpty(t, b.Label)
			assert.NotEmpty(t, b.Color)
		}
	}
	assert.Equal(t, badges[Unknown], Status(200).Badge())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Status
		wantErr bool
	}{
		{name: "lower", in: "approved", want: Approved},
		{name: "mixed case and spaces", in: "  PenDing ", want: Pending},
		{name: "unknown name", in: "lol", wantErr: true},
		{name: "unknown is not parseable", in: "unknown", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed(Pending, Approved))
	assert.True(t, Allowed(Pending, Rejected))
	assert.True(t, Allowed(Approved, Cancelled))
	assert.True(t, Allowed(Open, Resolved))
	assert.False(t, Allowed(Approved, Rejected))
	assert.False(t, Allowed(Rejected, Approved))
	assert.False(t, Allowed(Unknown, Approved))
	assert.True(t, Allowed(Pending, Active))
	assert.False(t, Allowed(Inactive, Pending))
}

func TestJSON(t *testing.T) {
	type rec struct {
		Status Status `json:"status"`
	}
	data, err := json.Marshal(rec{Status: Resolved})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"resolved"}`, string(data))

	var r rec
	require.NoError(t, json.Unmarshal([]byte(`{"status":"Inactive"}`), &r))
	assert.Equal(t, Inactive, r.Status)

	assert.Error(t, json.Unmarshal([]byte(`{"status":"nope"}`), &r))
}

func TestScanValue(t *testing.T) {
	var s Status
	require.NoError(t, s.Scan([]byte("open")))
	assert.Equal(t, Open, s)
	require.NoError(t, s.Scan(nil))
	assert.Equal(t, Unknown, s)
	assert.Error(t, s.Scan(42))

	v, err := Approved.Value()
	require.NoError(t, err)
	assert.Equal(t, "approved", v)
}
