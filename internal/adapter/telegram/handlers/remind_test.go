package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReminder(t *testing.T) {
	tests := []struct {
		name      string
		args      string
		wantDelay uint64
		wantText  string
		wantErr   bool
	}{
		{name: "valid", args: "30 take the kettle off", wantDelay: 30, wantText: "take the kettle off"},
		{name: "extra whitespace", args: "5   hello", wantText: "hello", wantDelay: 5},
		{name: "missing text", args: "30", wantErr: true},
		{name: "missing delay", args: "soon hello", wantErr: true},
		{name: "zero delay", args: "0 hello", wantErr: true},
		{name: "negative delay", args: "-5 hello", wantErr: true},
		{name: "empty", args: "", wantErr: true},
		{name: "huge delay", args: "99999999999 hello", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, text, err := parseReminder(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDelay, delay)
			assert.Equal(t, tt.wantText, text)
		})
	}
}
