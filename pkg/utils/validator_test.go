package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		amount  string
		wantErr bool
	}{
		{"1500.00", false},
		{"0.01", false},
		{"12.5", false},
		{"12.500", false},
		{"0", true},
		{"-3", true},
		{"12.345", true},
		{"1000000000.01", true},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "wrong\titem\nreturned", SanitizeString("  wrong\titem\x00\nreturned\x1b "))
	assert.Equal(t, "", SanitizeString("\x07"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"SalesAgent", "RVT"}, SplitList(" SalesAgent, ,RVT,"))
	assert.Nil(t, SplitList("  "))
}
