package adapters

import (
	"context"
	"unicode/utf8"

	"github.com/ramnodes/ramnodes/pkg/node"
)

const (
	NameEncryptedText = "EncryptedText"
	NamePreviewText   = "PreviewTextInRAM"

	textFormat = "plain"
)

type EncryptedTextRequest struct {
	EncryptedText string
	ClientID      string
}

// EncryptedText recovers client-obfuscated text.
type EncryptedText struct {
	keys KeySource
}

func NewEncryptedText(keys KeySource) *EncryptedText {
	return &EncryptedText{keys: keys}
}

func (a *EncryptedText) Decrypt(_ context.Context, req EncryptedTextRequest) (string, error) {
	if err := checkClientID(req.ClientID); err != nil {
		return "", err
	}
	if req.EncryptedText == "" {
		return "", nil
	}
	plain, err := open(a.keys, req.EncryptedText, req.ClientID)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", ErrInvalidEncoding
	}
	return string(plain), nil
}

func (a *EncryptedText) Schema() node.Schema {
	return node.Schema{
		Name:        NameEncryptedText,
		DisplayName: "Encrypted Text (Privacy)",
		Category:    "text",
		Inputs: []node.Input{
			{Name: "encrypted_text", Type: node.TypeString, Default: "", Multiline: true},
			clientIDInput,
		},
		Outputs:     []node.Type{node.TypeString},
		OutputNames: []string{"text"},
	}
}

func (a *EncryptedText) Execute(ctx context.Context, in node.Values) (node.Result, error) {
	s, err := stringInputs(in, "encrypted_text", inputClientID)
	if err != nil {
		return node.Result{}, err
	}
	text, err := a.Decrypt(ctx, EncryptedTextRequest{EncryptedText: s[0], ClientID: s[1]})
	if err != nil {
		return node.Result{}, err
	}
	return node.Result{Outputs: []interface{}{text}}, nil
}

func (a *EncryptedText) Fingerprint(in node.Values) (string, error) {
	s, err := stringInputs(in, "encrypted_text", inputClientID)
	if err != nil {
		return "", err
	}
	return fingerprint(s[0], s[1]), nil
}

type PreviewTextRequest struct {
	Text     string
	ClientID string
}

// PreviewText returns generated text to the client obfuscated.
type PreviewText struct {
	keys KeySource
}

func NewPreviewText(keys KeySource) *PreviewText {
	return &PreviewText{keys: keys}
}

func (a *PreviewText) Preview(_ context.Context, req PreviewTextRequest) ([]node.Preview, error) {
	if err := checkClientID(req.ClientID); err != nil {
		return nil, err
	}
	if req.Text == "" {
		return []node.Preview{}, nil
	}
	key, err := sessionKey(a.keys, req.ClientID)
	if err != nil {
		return nil, err
	}
	env, err := seal([]byte(req.Text), key)
	if err != nil {
		return nil, err
	}
	return []node.Preview{{Base64: env, Type: node.KindText, Format: textFormat}}, nil
}

func (a *PreviewText) Schema() node.Schema {
	return node.Schema{
		Name:        NamePreviewText,
		DisplayName: "Preview Text (Privacy)",
		Category:    "text",
		Inputs: []node.Input{
			{Name: "text", Type: node.TypeString, Default: "", Multiline: true},
			clientIDInput,
		},
		OutputNode: true,
	}
}

func (a *PreviewText) Execute(ctx context.Context, in node.Values) (node.Result, error) {
	s, err := stringInputs(in, "text", inputClientID)
	if err != nil {
		return node.Result{}, err
	}
	previews, err := a.Preview(ctx, PreviewTextRequest{Text: s[0], ClientID: s[1]})
	if err != nil {
		return node.Result{}, err
	}
	return node.Previews(previews...), nil
}
