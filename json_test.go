package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonMarshaler(t *testing.T) {
	m := JsonMarshaler{}

	t.Run("RawBytes", func(t *testing.T) {
		input := []byte("hello world")
		output, err := m.Marshal(input)
		assert.NoError(t, err)
		assert.Equal(t, input, output, "Should be zero-copy for []byte")
	})

	t.Run("String", func(t *testing.T) {
		output, err := m.Marshal("hello world")
		assert.NoError(t, err)
		assert.Equal(t, []byte("hello world"), output)
	})

	t.Run("HeaderMap", func(t *testing.T) {
		hdr := map[string]string{"k": "v"}
		output, err := m.Marshal(hdr)
		require.NoError(t, err)

		decoded := make(map[string]string)
		require.NoError(t, m.Unmarshal(output, &decoded))
		assert.Equal(t, hdr, decoded)
	})

	assert.Equal(t, "json", m.String())
}
