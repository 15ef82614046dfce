// Package aes128 implements AES-128 key expansion and the inverse
// (decrypt-only) cipher that MED uses to unwrap metadata sections 2/3,
// record entries, and compressed block payloads (spec.md §4.1). Only the
// read path is required; there is no Encrypt entry point.
package aes128

import "github.com/MEDFormat/MEDC-sub000/errs"

const (
	BlockSize = 16
	keyWords  = 4
	rounds    = 10
)

// RoundKeys holds the 11 round keys (176 bytes) derived from a 16-byte
// terminal-byte key via the standard AES-128 key schedule.
type RoundKeys struct {
	words [4 * (rounds + 1)][4]byte
}

// ExpandKey derives the AES-128 round key schedule from a 16-byte key.
//
// MED derives that 16-byte key not from raw password bytes but from the
// password's "terminal bytes": the UTF-8 text taken one low byte per
// character, zero-padded or truncated to 16 bytes (spec.md §4.1). Callers
// build the terminal bytes via password.TerminalBytes before calling this.
func ExpandKey(key []byte) (*RoundKeys, error) {
	if len(key) != BlockSize {
		return nil, errs.Wrap("aes128.ExpandKey", errs.ErrUnsupportedEncoding)
	}

	rk := &RoundKeys{}
	for i := 0; i < keyWords; i++ {
		copy(rk.words[i][:], key[4*i:4*i+4])
	}

	for i := keyWords; i < 4*(rounds+1); i++ {
		temp := rk.words[i-1]
		if i%keyWords == 0 {
			temp = subWord(rotWord(temp))
			temp[0] ^= rcon[i/keyWords]
		}
		for j := 0; j < 4; j++ {
			rk.words[i][j] = rk.words[i-keyWords][j] ^ temp[j]
		}
	}

	return rk, nil
}

func rotWord(w [4]byte) [4]byte {
	return [4]byte{w[1], w[2], w[3], w[0]}
}

func subWord(w [4]byte) [4]byte {
	return [4]byte{sbox[w[0]], sbox[w[1]], sbox[w[2]], sbox[w[3]]}
}

// roundKey returns the 16-byte round key for round r (0..10) in AES
// column-major state layout.
func (rk *RoundKeys) roundKey(r int) [16]byte {
	var out [16]byte
	for c := 0; c < 4; c++ {
		w := rk.words[r*4+c]
		out[c] = w[0]
		out[4+c] = w[1]
		out[8+c] = w[2]
		out[12+c] = w[3]
	}

	return out
}

func addRoundKey(state *[16]byte, rk [16]byte) {
	for i := range state {
		state[i] ^= rk[i]
	}
}

func invSubBytes(state *[16]byte) {
	for i, b := range state {
		state[i] = invSbox[b]
	}
}

// invShiftRows undoes ShiftRows on the column-major AES state.
func invShiftRows(state *[16]byte) {
	s := *state
	// row r (0-3), shifted right by r.
	for r := 1; r < 4; r++ {
		for c := 0; c < 4; c++ {
			state[r*4+(c+r)%4] = s[r*4+c]
		}
	}
}

func invMixColumns(state *[16]byte) {
	for c := 0; c < 4; c++ {
		a0 := state[4*0+c]
		a1 := state[4*1+c]
		a2 := state[4*2+c]
		a3 := state[4*3+c]

		state[4*0+c] = gmul(a0, 0x0e) ^ gmul(a1, 0x0b) ^ gmul(a2, 0x0d) ^ gmul(a3, 0x09)
		state[4*1+c] = gmul(a0, 0x09) ^ gmul(a1, 0x0e) ^ gmul(a2, 0x0b) ^ gmul(a3, 0x0d)
		state[4*2+c] = gmul(a0, 0x0d) ^ gmul(a1, 0x09) ^ gmul(a2, 0x0e) ^ gmul(a3, 0x0b)
		state[4*3+c] = gmul(a0, 0x0b) ^ gmul(a1, 0x0d) ^ gmul(a2, 0x09) ^ gmul(a3, 0x0e)
	}
}

// toState loads 16 bytes into AES column-major state: state[row*4+col] =
// block[col*4+row].
func toState(block [16]byte) [16]byte {
	var s [16]byte
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			s[row*4+col] = block[col*4+row]
		}
	}

	return s
}

func fromState(s [16]byte) [16]byte {
	var block [16]byte
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			block[col*4+row] = s[row*4+col]
		}
	}

	return block
}

// DecryptBlock decrypts a single 16-byte block in place using the 10-round
// AES-128 inverse cipher.
func DecryptBlock(rk *RoundKeys, block *[16]byte) {
	state := toState(*block)

	addRoundKey(&state, rk.roundKey(rounds))

	for r := rounds - 1; r > 0; r-- {
		invShiftRows(&state)
		invSubBytes(&state)
		addRoundKey(&state, rk.roundKey(r))
		invMixColumns(&state)
	}

	invShiftRows(&state)
	invSubBytes(&state)
	addRoundKey(&state, rk.roundKey(0))

	*block = fromState(state)
}

// Decrypt decrypts data in place, block by block (ECB, no padding
// handling — MED encryption wraps fixed-size metadata sections and
// block/record regions that are pre-sized to whole 16-byte multiples).
// len(data) must be a multiple of BlockSize.
func Decrypt(rk *RoundKeys, data []byte) error {
	if len(data)%BlockSize != 0 {
		return errs.Wrap("aes128.Decrypt", errs.ErrCorruptBlock)
	}

	var block [16]byte
	for off := 0; off < len(data); off += BlockSize {
		copy(block[:], data[off:off+BlockSize])
		DecryptBlock(rk, &block)
		copy(data[off:off+BlockSize], block[:])
	}

	return nil
}
