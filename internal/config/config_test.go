package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateJWTSecret(t *testing.T) {
	testCases := []struct {
		name        string
		environment string
		secret      string
		wantErr     bool
	}{
		{name: "development default", environment: "development", secret: DevelopmentJWTSecret},
		{name: "production default", environment: "production", secret: DevelopmentJWTSecret, wantErr: true},
		{name: "production empty", environment: "production", secret: "", wantErr: true},
		{name: "production custom", environment: "production", secret: "s3cr3t-from-vault"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateJWTSecret(tc.environment, tc.secret)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
