package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"lower case", "0x52908400098527886e0f7030069857d2e4169ee7", false},
		{"checksummed", "0x52908400098527886E0F7030069857D2E4169EE7", false},
		{"empty", "", true},
		{"missing prefix", "52908400098527886e0f7030069857d2e4169ee7", true},
		{"too short", "0x1234", true},
		{"not hex", "0x52908400098527886e0f7030069857d2e4169ezz", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAndNormalizeAddress(t *testing.T) {
	got, err := ValidateAndNormalizeAddress("0x52908400098527886E0F7030069857D2E4169EE7")
	require.NoError(t, err)
	assert.Equal(t, "0x52908400098527886e0f7030069857d2e4169ee7", got)
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x5290...9ee7", ShortAddress("0x52908400098527886e0f7030069857d2e4169ee7"))
	assert.Equal(t, "0x12", ShortAddress("0x12"))
}
