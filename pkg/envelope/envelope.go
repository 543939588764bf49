// Package envelope carries obfuscated payloads in text fields as standard,
// padded base64.
package envelope

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/ramnodes/ramnodes/pkg/obfs"
)

// ErrMalformedEnvelope is returned for text that is not valid base64.
var ErrMalformedEnvelope = errors.New("malformed envelope")

func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return b, nil
}

// Seal obfuscates plain with key and wraps the result in an envelope.
func Seal(plain, key []byte) (string, error) {
	ob, err := obfs.Transform(plain, key)
	if err != nil {
		return "", err
	}
	return Encode(ob), nil
}

// Open reverses Seal.
func Open(env string, key []byte) ([]byte, error) {
	ob, err := Decode(env)
	if err != nil {
		return nil, err
	}
	return obfs.Transform(ob, key)
}
