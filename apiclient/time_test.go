package apiclient

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTime_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantNil bool
		wantErr bool
	}{
		{
			name:  "naive backend datetime",
			input: `{"at": "2024-03-05T10:20:30.123456"}`,
			want:  time.Date(2024, 3, 5, 10, 20, 30, 123456000, time.UTC),
		},
		{
			name:  "rfc3339 with offset",
			input: `{"at": "2024-03-05T12:20:30+02:00"}`,
			want:  time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC),
		},
		{
			name:    "null",
			input:   `{"at": null}`,
			wantNil: true,
		},
		{
			name:    "garbage",
			input:   `{"at": "yesterday"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				At *Time `json:"at"`
			}
			err := json.Unmarshal([]byte(tt.input), &out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, out.At)
				return
			}
			require.NotNil(t, out.At)
			assert.True(t, tt.want.Equal(out.At.Time), "got %v", out.At.Time)
		})
	}
}

func TestTime_MarshalZeroIsNull(t *testing.T) {
	b, err := json.Marshal(Time{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}
