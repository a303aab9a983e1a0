package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	t.Cleanup(func() { BuildVersion = devVersion })

	tests := []struct {
		name           string
		buildVersion   string
		constraint     string
		errorSubstring string
	}{
		{
			name:         "satisfied",
			buildVersion: "1.7.8",
			constraint:   ">= 1.2",
		},
		{
			name:         "git describe suffix",
			buildVersion: "1.7.8-11-g2300850-2300850",
			constraint:   "~1.7",
		},
		{
			name:           "too old",
			buildVersion:   "1.1.0",
			constraint:     ">= 1.2",
			errorSubstring: `mathedit 1.1.0 does not satisfy ">= 1.2"`,
		},
		{
			name:         "development build",
			buildVersion: devVersion,
			constraint:   ">= 99",
		},
		{
			name:           "invalid constraint",
			buildVersion:   devVersion,
			constraint:     "newest",
			errorSubstring: `invalid version constraint "newest"`,
		},
		{
			name:           "invalid build version",
			buildVersion:   "1.2.beta",
			constraint:     ">= 1",
			errorSubstring: `invalid build version "1.2.beta"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			BuildVersion = tt.buildVersion
			err := Check(tt.constraint)
			if tt.errorSubstring == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorSubstring)
		})
	}
}

func TestString(t *testing.T) {
	t.Cleanup(func() {
		BuildVersion, Commit, BuildDate = devVersion, "unknown", "unknown"
	})

	BuildVersion, Commit, BuildDate = "1.2.3", "2300850", "2026-10-14"
	assert.Equal(t, "mathedit 1.2.3 (2300850) on 2026-10-14", String())
}
