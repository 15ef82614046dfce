package aes128

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDecryptBlock_FIPS197Vector checks the inverse cipher against the
// official FIPS-197 Appendix C.1 AES-128 test vector.
func TestDecryptBlock_FIPS197Vector(t *testing.T) {
	key, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)

	ciphertext, err := hex.DecodeString("69c4e0d86a7b0430d8cdb78070b4c55a")
	require.NoError(t, err)

	wantPlaintext, err := hex.DecodeString("00112233445566778899aabbccddeeff")
	require.NoError(t, err)

	rk, err := ExpandKey(key)
	require.NoError(t, err)

	var block [16]byte
	copy(block[:], ciphertext)
	DecryptBlock(rk, &block)

	require.Equal(t, wantPlaintext, block[:])
}

func TestDecrypt_MultiBlockInPlace(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}
	rk, err := ExpandKey(key)
	require.NoError(t, err)

	data := make([]byte, 48)
	for i := range data {
		data[i] = byte(i * 3)
	}
	original := append([]byte(nil), data...)

	require.NoError(t, Decrypt(rk, data))
	require.NotEqual(t, original, data)
}

func TestExpandKey_RejectsWrongSize(t *testing.T) {
	_, err := ExpandKey(make([]byte, 10))
	require.Error(t, err)
}
