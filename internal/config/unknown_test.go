package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UnknownKey_TopLevel(t *testing.T) {
	path := writeTestConfig(t, minimalConfig+`unknown_section = "value"`+"\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestLoad_UnknownKey_Typo(t *testing.T) {
	path := writeTestConfig(t, minimalConfig+"time_out = 10\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "timeout"`)
}

func TestLoad_UnknownKey_SectionReportedOnce(t *testing.T) {
	path := writeTestConfig(t, minimalConfig+"[server]\nhost = \"x\"\nport = 21\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(err.Error(), `unknown config key "server"`))
}

func TestLoad_UnknownKey_NoSuggestion(t *testing.T) {
	path := writeTestConfig(t, minimalConfig+"completely_unrelated_key = true\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"pasiv", "pasv", 1},
		{"time_out", "timeout", 1},
		{"completely_different", "xyz", 19},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, levenshtein(tt.a, tt.b))
		})
	}
}

func TestClosestMatch_Found(t *testing.T) {
	assert.Equal(t, "username", closestMatch("usernme", knownKeysList))
	assert.Equal(t, "base_url", closestMatch("baseurl", knownKeysList))
}

func TestClosestMatch_NotFound(t *testing.T) {
	assert.Equal(t, "", closestMatch("completely_unrelated", knownKeysList))
}
