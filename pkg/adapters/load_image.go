package adapters

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ramnodes/ramnodes/pkg/codec"
	"github.com/ramnodes/ramnodes/pkg/node"
)

const NameLoadImage = "LoadImageFromUpload"

type LoadImageRequest struct {
	EncryptedUpload string
	ClientID        string
}

type LoadImageResponse struct {
	Images node.Images
	Masks  node.Masks
}

// LoadImage turns a client-obfuscated upload into an image and mask.
type LoadImage struct {
	keys    KeySource
	decoder codec.ImageDecoder
}

func NewLoadImage(keys KeySource, decoder codec.ImageDecoder) *LoadImage {
	return &LoadImage{keys: keys, decoder: decoder}
}

func (a *LoadImage) Load(ctx context.Context, req LoadImageRequest) (LoadImageResponse, error) {
	if err := checkClientID(req.ClientID); err != nil {
		return LoadImageResponse{}, err
	}
	if req.EncryptedUpload == "" {
		return LoadImageResponse{Images: node.Images{}, Masks: node.Masks{}}, nil
	}
	plain, err := open(a.keys, req.EncryptedUpload, req.ClientID)
	if err != nil {
		return LoadImageResponse{}, err
	}
	if err := ctx.Err(); err != nil {
		return LoadImageResponse{}, err
	}
	d, err := a.decoder.DecodeImage(plain)
	if err != nil {
		return LoadImageResponse{}, errors.Wrap(err, "load image")
	}
	return LoadImageResponse{Images: node.Images{d.Image}, Masks: node.Masks{d.Mask}}, nil
}

func (a *LoadImage) Schema() node.Schema {
	return node.Schema{
		Name:        NameLoadImage,
		DisplayName: "Load Image (Privacy)",
		Category:    "image",
		Inputs: []node.Input{
			{Name: "encrypted_upload", Type: node.TypeString, Default: "", Multiline: true},
			clientIDInput,
		},
		Outputs: []node.Type{node.TypeImage, node.TypeMask},
	}
}

func (a *LoadImage) Execute(ctx context.Context, in node.Values) (node.Result, error) {
	s, err := stringInputs(in, "encrypted_upload", inputClientID)
	if err != nil {
		return node.Result{}, err
	}
	resp, err := a.Load(ctx, LoadImageRequest{EncryptedUpload: s[0], ClientID: s[1]})
	if err != nil {
		return node.Result{}, err
	}
	return node.Result{Outputs: []interface{}{resp.Images, resp.Masks}}, nil
}

func (a *LoadImage) Fingerprint(in node.Values) (string, error) {
	s, err := stringInputs(in, "encrypted_upload", inputClientID)
	if err != nil {
		return "", err
	}
	return fingerprint(s[0], s[1]), nil
}
