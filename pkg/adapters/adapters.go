// Package adapters implements the pipeline nodes that reverse or apply
// session-key obfuscation at the boundary between the client and the
// media codecs.
//
// Every adapter rejects an empty client id with keyring.ErrMissingClientID
// before touching the key registry, then treats empty input as nothing to
// do. Inbound adapters decode the envelope and de-obfuscate before handing
// plaintext to a codec; outbound adapters obfuscate codec output and return
// it as previews.
package adapters

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/ramnodes/ramnodes/pkg/codec"
	"github.com/ramnodes/ramnodes/pkg/envelope"
	"github.com/ramnodes/ramnodes/pkg/keyring"
	"github.com/ramnodes/ramnodes/pkg/node"
	"github.com/ramnodes/ramnodes/pkg/obfs"
)

var ErrInvalidEncoding = errors.New("decrypted text is not valid UTF-8")

// KeySource is the read side of the session key registry.
type KeySource interface {
	Lookup(clientID string) ([]byte, bool)
}

// MediaCodec is everything the adapters need from a codec.
type MediaCodec interface {
	codec.ImageDecoder
	codec.ImageEncoder
	codec.AnimationEncoder
}

const inputClientID = "client_id"

var clientIDInput = node.Input{Name: inputClientID, Type: node.TypeString, Default: ""}

// Nodes returns every adapter, ready to register with a node.Registry.
func Nodes(keys KeySource, c MediaCodec) []node.Node {
	return []node.Node{
		NewLoadImage(keys, c),
		NewPreviewImage(keys, c),
		NewPreviewVideo(keys),
		NewPreviewAnimation(keys, c),
		NewEncryptedText(keys),
		NewPreviewText(keys),
	}
}

func checkClientID(clientID string) error {
	if clientID == "" {
		return keyring.ErrMissingClientID
	}
	return nil
}

func sessionKey(keys KeySource, clientID string) ([]byte, error) {
	if err := checkClientID(clientID); err != nil {
		return nil, err
	}
	key, ok := keys.Lookup(clientID)
	if !ok {
		return nil, errors.Wrapf(keyring.ErrUnknownClient, "client %q", clientID)
	}
	return key, nil
}

// open decodes env and de-obfuscates it with the client's key.
func open(keys KeySource, env, clientID string) ([]byte, error) {
	ob, err := envelope.Decode(env)
	if err != nil {
		return nil, err
	}
	key, err := sessionKey(keys, clientID)
	if err != nil {
		return nil, err
	}
	return obfs.Transform(ob, key)
}

func seal(plain, key []byte) (string, error) {
	return envelope.Seal(plain, key)
}

// fingerprint is the re-execution hash of an inbound envelope.
func fingerprint(env, clientID string) string {
	sum := sha256.Sum256([]byte(env + clientID))
	return hex.EncodeToString(sum[:])
}

func stringInputs(in node.Values, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		s, err := in.String(name)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
