package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationCountAlwaysEncoded(t *testing.T) {
	data, err := json.Marshal(Observation{Label: "Management Rows", Kind: ProbeCount})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"count":0`)
}

func TestRunResultFinish(t *testing.T) {
	tests := []struct {
		name     string
		warnings []string
		err      error
		want     RunStatus
	}{
		{"clean", nil, nil, StatusSuccess},
		{"warnings", []string{"Meal Name mismatch"}, nil, StatusWarning},
		{"error wins", []string{"Meal Name mismatch"}, errors.New("login did not complete"), StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RunResult{}
			r.AddPage(PageResult{Name: "Feeding", Warnings: tt.warnings})
			r.Finish(tt.err)

			assert.Equal(t, tt.want, r.Status)
			assert.True(t, r.Status.Done())
			assert.Equal(t, tt.warnings, r.Warnings)
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), r.ErrorMessage)
			}
		})
	}
}

func TestLocatorString(t *testing.T) {
	assert.Equal(t, "input[type='email']", Locator{CSS: "input[type='email']"}.String())
	assert.Equal(t, "placeholder=E-mail", Locator{Placeholder: "E-mail"}.String())
	assert.Equal(t, "role=button[name=Login]", Locator{Role: "button", Name: "Login"}.String())
	assert.True(t, Locator{}.IsZero())
}
