package app

import "crypto/rand"

// roomCodeChars are characters used for room codes (no ambiguous chars)
const roomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeProvider produces a candidate room code of the given length. The hub
// enforces uniqueness by retrying on collision, so providers only need to
// return reasonably well-spread codes.
type CodeProvider func(length int) string

// RandomCode is the default code provider.
func RandomCode(length int) string {
	b := make([]byte, length)
	rand.Read(b)

	code := make([]byte, length)
	for i := range code {
		code[i] = roomCodeChars[int(b[i])%len(roomCodeChars)]
	}

	return string(code)
}
