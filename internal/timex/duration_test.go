package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"15m","b":1000000000}`), &v))
	assert.Equal(t, 15*time.Minute, v.A.Duration)
	assert.Equal(t, time.Second, v.B.Duration)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"forever"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{Duration: 90 * time.Second})
	require.NoError(t, err)
	assert.JSONEq(t, `"1m30s"`, string(b))
}

func TestParseISO(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-04-12T13:45", time.Date(2025, 4, 12, 13, 45, 0, 0, time.UTC)},
		{"2025-04-12T13:45:30", time.Date(2025, 4, 12, 13, 45, 30, 0, time.UTC)},
		{"2025-04-12T13:45:30.123456", time.Date(2025, 4, 12, 13, 45, 30, 123456000, time.UTC)},
		{"2025-04-12T13:45:00Z", time.Date(2025, 4, 12, 13, 45, 0, 0, time.UTC)},
		{"2025-04-12T13:45+03:30", time.Date(2025, 4, 12, 10, 15, 0, 0, time.UTC)},
		{"2025-04-12T13:45Z", time.Date(2025, 4, 12, 13, 45, 0, 0, time.UTC)},
		{"2025-04-12", time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseISO(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}

	_, err := ParseISO("yesterday")
	assert.Error(t, err)
}

func TestFormatISO(t *testing.T) {
	at := time.Date(2025, 4, 12, 17, 15, 30, 123456000, time.FixedZone("IRST", 3*3600+1800))
	assert.Equal(t, "2025-04-12T13:45:30.123456", FormatISO(at))
	assert.Equal(t, "2025-04-12T13:45:00", FormatISO(time.Date(2025, 4, 12, 13, 45, 0, 0, time.UTC)))

	back, err := ParseISO(FormatISO(at))
	require.NoError(t, err)
	assert.True(t, back.Equal(at))
}
