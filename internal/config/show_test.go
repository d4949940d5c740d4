package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEffective_AllSections(t *testing.T) {
	cfg := validConfig()
	cfg.Encoding = "gbk"

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(cfg, &buf))

	output := buf.String()
	assert.Contains(t, output, "ftp.example.com:21")
	assert.Contains(t, output, "[server]")
	assert.Contains(t, output, "[storage]")
	assert.Contains(t, output, "[logging]")
	assert.Contains(t, output, "[watch]")
	assert.Contains(t, output, `encoding     = "gbk"`)
	assert.Contains(t, output, "# text")
}

func TestRenderEffective_MasksPassword(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderEffective(validConfig(), &buf))

	assert.NotContains(t, buf.String(), "s3cret")
	assert.Contains(t, buf.String(), maskedPassword)
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderEffective_WriteError(t *testing.T) {
	err := RenderEffective(validConfig(), failWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
