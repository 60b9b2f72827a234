package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncoder(t *testing.T) {
	buf := new(bytes.Buffer)
	for _, format := range []string{"plain", "csv", "json", "xml"} {
		enc, err := NewEncoder(format, buf)
		require.NoError(t, err, format)
		require.NotNil(t, enc, format)
	}
}

func TestNewEncoderInvalid(t *testing.T) {
	enc, err := NewEncoder("gob", nil)
	assert.Nil(t, enc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
