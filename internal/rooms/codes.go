package rooms

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/big"
	"strconv"

	"github.com/google/uuid"
)

const (
	// AlphabetSafe drops the visually ambiguous 0/O/1/I. Used by the
	// scoring and spy variants.
	AlphabetSafe = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// AlphabetFull is the plain uppercase alphanumeric set used by the
	// dress-code variant.
	AlphabetFull = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	CodeLength = 6

	tokenMinLength = 26
)

// NewCode returns a 6-character room code, uniform per character.
// Uniqueness among live rooms is the caller's job (see Kernel.Create).
func NewCode(alphabet string) string {
	code := make([]byte, CodeLength)
	for i := range code {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code)
}

// NewToken returns an opaque capability string built from concatenated
// random base-36 fragments. Tokens are only ever compared for equality.
func NewToken() string {
	token := ""
	for len(token) < tokenMinLength {
		var buf [8]byte
		if _, err := crand.Read(buf[:]); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		token += strconv.FormatUint(binary.BigEndian.Uint64(buf[:]), 36)
	}
	return token
}

// NewPlayerID returns an identity key for spy players and anonymous
// hosts. Same construction as a capability token.
func NewPlayerID() string {
	return NewToken()
}

// NewRoomID returns the internal room identifier used for direct
// lookups and subscriptions.
func NewRoomID() string {
	return uuid.NewString()
}

// NewDeviceID returns a soft per-browser identity. Issued once, stored
// client-side, and passed explicitly into every dress-code call.
func NewDeviceID() string {
	return "device-" + uuid.NewString()
}
