package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil query service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{}, Options{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingQueryService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Query: &mockQueryService{}}, Options{})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})

	t.Run("zero options get defaults", func(t *testing.T) {
		server, err := NewServer(&Ports{Query: &mockQueryService{}}, Options{})
		require.NoError(t, err)
		assert.Equal(t, 5, server.opts.DefaultTopK)
		assert.Equal(t, 50, server.opts.MaxTopK)
		assert.Equal(t, 500, server.opts.SnippetChars)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil query service returns error", func(t *testing.T) {
		err := (&Ports{}).Validate()
		assert.ErrorIs(t, err, ErrMissingQueryService)
	})

	t.Run("query only is valid", func(t *testing.T) {
		err := (&Ports{Query: &mockQueryService{}}).Validate()
		assert.NoError(t, err)
	})
}
