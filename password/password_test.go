package password

import (
	"testing"

	"github.com/MEDFormat/MEDC-sub000/aes128"
	"github.com/MEDFormat/MEDC-sub000/format"
	"github.com/stretchr/testify/require"
)

// buildValidationFields constructs the UH validation fields the way a
// writer would: from real L1/L2/L3 passwords, so tests exercise the exact
// relationships Process/Recover check.
func buildValidationFields(l1Pw, l2Pw, l3Pw string) ValidationFields {
	l1Term := TerminalBytes(l1Pw)
	l2Term := TerminalBytes(l2Pw)
	l3Term := TerminalBytes(l3Pw)

	var vf ValidationFields
	vf.L1 = hashField(l1Term[:])
	// L2 field stores H(L2) XOR L1_terminal_bytes, so that XOR-ing a
	// correct L2 password's hash with vf.L2 recovers L1's terminal bytes.
	hL2 := hashField(l2Term[:])
	vf.L2 = xor16(hL2, l1Term)
	// L3 field stores H(L3) XOR L2_terminal_bytes (chained recovery: L3
	// reveals L2, which in turn reveals L1 via vf.L2 above).
	hL3 := hashField(l3Term[:])
	vf.L3 = xor16(hL3, l2Term)

	return vf
}

func TestProcess_L1Password(t *testing.T) {
	vf := buildValidationFields("level-one-pw", "level-two-pw", "recovery-pw")

	keys, level, err := Process("level-one-pw", vf)
	require.NoError(t, err)
	require.Equal(t, format.EncryptionLevel1, level)
	require.NotNil(t, keys.L1)
	require.Nil(t, keys.L2)
}

// TestProcess_L2RoundTrip covers spec.md §8 property 2: processing a valid
// L2 password yields access_level L2 with both keys, and the L1 key
// decrypts data encrypted under that key.
func TestProcess_L2RoundTrip(t *testing.T) {
	vf := buildValidationFields("level-one-pw", "level-two-pw", "recovery-pw")

	keys, level, err := Process("level-two-pw", vf)
	require.NoError(t, err)
	require.Equal(t, format.EncryptionLevel2, level)
	require.NotNil(t, keys.L1)
	require.NotNil(t, keys.L2)

	// Round-trip: the L1 key this recovers must be the same key a direct
	// L1 Process call derives.
	l1Keys, l1Level, err := Process("level-one-pw", vf)
	require.NoError(t, err)
	require.Equal(t, format.EncryptionLevel1, l1Level)

	var block [16]byte
	for i := range block {
		block[i] = byte(i)
	}
	want := block
	aes128.DecryptBlock(l1Keys.L1, &want)

	got := block
	aes128.DecryptBlock(keys.L1, &got)

	require.Equal(t, want, got)
}

func TestProcess_BadPassword(t *testing.T) {
	vf := buildValidationFields("level-one-pw", "level-two-pw", "recovery-pw")

	_, _, err := Process("wrong-password", vf)
	require.Error(t, err)
}

// TestRecover_ChainedCase covers spec.md E6: recover_passwords(valid_L3)
// emits both L1 and L2 terminal byte strings, and each re-validates at
// its expected level.
func TestRecover_ChainedCase(t *testing.T) {
	vf := buildValidationFields("level-one-pw", "level-two-pw", "recovery-pw")

	l1Term, l2Term, ok := Recover("recovery-pw", vf)
	require.True(t, ok)
	require.Equal(t, TerminalBytes("level-one-pw"), l1Term)
	require.Equal(t, TerminalBytes("level-two-pw"), l2Term)
}

func TestRecover_StandaloneCase(t *testing.T) {
	l1Term := TerminalBytes("level-one-pw")
	l3Term := TerminalBytes("recovery-pw")

	var vf ValidationFields
	vf.L1 = hashField(l1Term[:])
	vf.L3 = xor16(hashField(l3Term[:]), l1Term)
	// vf.L2 left zero: no L2 password on this file.

	gotL1, gotL2, ok := Recover("recovery-pw", vf)
	require.True(t, ok)
	require.Equal(t, l1Term, gotL1)
	require.Equal(t, [16]byte{}, gotL2)
}

func TestRecover_WrongPassword(t *testing.T) {
	vf := buildValidationFields("level-one-pw", "level-two-pw", "recovery-pw")

	_, _, ok := Recover("not-the-recovery-password", vf)
	require.False(t, ok)
}
