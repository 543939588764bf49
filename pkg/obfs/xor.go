package obfs

import "errors"

// ErrInvalidKey is returned when an empty key is presented to the cipher.
var ErrInvalidKey = errors.New("xor key cannot be empty")

// Transform XORs every byte of data with key cycled to the length of data.
// The transform is its own inverse.
func Transform(data, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrInvalidKey
	}
	return XORObfuscator(key).Obfuscate(data), nil
}

// XORObfuscator is a session key used as a repeating XOR mask.
type XORObfuscator []byte

// Obfuscate returns a new slice, or nil for an empty key.
func (x XORObfuscator) Obfuscate(p []byte) []byte {
	if len(x) == 0 {
		return nil
	}
	l := len(x)
	np := make([]byte, len(p))
	for i := range p {
		np[i] = p[i] ^ x[i%l]
	}
	return np
}
