package crypto

import "encoding/base64"

// EncodeToString renders raw bytes for the text-oriented persistence
// layer. Standard base64; round-trips exactly for every input including
// the empty one.
func EncodeToString(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeString reverses EncodeToString.
func DecodeString(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
