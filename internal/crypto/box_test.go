package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBox_RoundTrip(t *testing.T) {
	b, err := NewBox("test-secret")
	require.NoError(t, err)

	plaintext := []byte(`{"name":"Alice","blood_type":"0+"}`)

	blob, err := b.Seal(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, blob)

	got, err := b.Open(blob)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestBox_DistinctNonces(t *testing.T) {
	b, err := NewBox("test-secret")
	require.NoError(t, err)

	first, err := b.Seal([]byte("payload"))
	require.NoError(t, err)
	second, err := b.Seal([]byte("payload"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "same plaintext must not produce the same blob twice")
}

func TestBox_WrongSecret(t *testing.T) {
	sealer, err := NewBox("secret-one")
	require.NoError(t, err)
	opener, err := NewBox("secret-two")
	require.NoError(t, err)

	blob, err := sealer.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = opener.Open(blob)
	require.Error(t, err)
}

func TestBox_TruncatedBlob(t *testing.T) {
	b, err := NewBox("test-secret")
	require.NoError(t, err)

	_, err = b.Open([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestNewBox_EmptySecret(t *testing.T) {
	_, err := NewBox("")
	require.Error(t, err)
}
