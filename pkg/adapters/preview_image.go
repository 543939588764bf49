package adapters

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ramnodes/ramnodes/pkg/codec"
	"github.com/ramnodes/ramnodes/pkg/node"
)

const NamePreviewImage = "PreviewImageInRAM"

type PreviewImageRequest struct {
	Images   node.Images
	ClientID string
}

// PreviewImage returns each frame as an obfuscated still.
type PreviewImage struct {
	keys    KeySource
	encoder codec.ImageEncoder
}

func NewPreviewImage(keys KeySource, encoder codec.ImageEncoder) *PreviewImage {
	return &PreviewImage{keys: keys, encoder: encoder}
}

func (a *PreviewImage) Preview(ctx context.Context, req PreviewImageRequest) ([]node.Preview, error) {
	if err := checkClientID(req.ClientID); err != nil {
		return nil, err
	}
	if len(req.Images) == 0 {
		return []node.Preview{}, nil
	}
	key, err := sessionKey(a.keys, req.ClientID)
	if err != nil {
		return nil, err
	}
	previews := make([]node.Preview, 0, len(req.Images))
	for i, img := range req.Images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, format, err := a.encoder.EncodeImage(img)
		if err != nil {
			return nil, errors.Wrapf(err, "preview image %d", i)
		}
		env, err := seal(data, key)
		if err != nil {
			return nil, err
		}
		previews = append(previews, node.Preview{Base64: env, Type: node.KindImage, Format: format})
	}
	return previews, nil
}

func (a *PreviewImage) Schema() node.Schema {
	return node.Schema{
		Name:        NamePreviewImage,
		DisplayName: "Preview Image (Privacy)",
		Category:    "image",
		Inputs: []node.Input{
			{Name: "images", Type: node.TypeImage},
			clientIDInput,
		},
		OutputNode: true,
	}
}

func (a *PreviewImage) Execute(ctx context.Context, in node.Values) (node.Result, error) {
	images, err := in.Images("images")
	if err != nil {
		return node.Result{}, err
	}
	clientID, err := in.String(inputClientID)
	if err != nil {
		return node.Result{}, err
	}
	previews, err := a.Preview(ctx, PreviewImageRequest{Images: images, ClientID: clientID})
	if err != nil {
		return node.Result{}, err
	}
	return node.Previews(previews...), nil
}
