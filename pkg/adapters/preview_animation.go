package adapters

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ramnodes/ramnodes/pkg/codec"
	"github.com/ramnodes/ramnodes/pkg/node"
)

const (
	NamePreviewAnimation = "PreviewAnimationAsWebP"

	DefaultFPS = 10.0
	MinFPS     = 0.1
	// MaxFPS is accepted, but GIF previews play at most at 50 fps
	// (codec.MinFrameDelay).
	MaxFPS     = 60.0
)

type PreviewAnimationRequest struct {
	Images   node.Images
	FPS      float64
	ClientID string
}

// PreviewAnimation encodes a frame batch as one obfuscated animation.
type PreviewAnimation struct {
	keys    KeySource
	encoder codec.AnimationEncoder
}

func NewPreviewAnimation(keys KeySource, encoder codec.AnimationEncoder) *PreviewAnimation {
	return &PreviewAnimation{keys: keys, encoder: encoder}
}

func (a *PreviewAnimation) Preview(ctx context.Context, req PreviewAnimationRequest) ([]node.Preview, error) {
	if err := checkClientID(req.ClientID); err != nil {
		return nil, err
	}
	if len(req.Images) == 0 {
		return []node.Preview{}, nil
	}
	if req.FPS < MinFPS || req.FPS > MaxFPS {
		return nil, node.InputError{Input: "fps", Err: errors.Errorf("%v out of range [%v, %v]", req.FPS, MinFPS, MaxFPS)}
	}
	key, err := sessionKey(a.keys, req.ClientID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, format, err := a.encoder.EncodeAnimation(req.Images, req.FPS)
	if err != nil {
		return nil, errors.Wrap(err, "preview animation")
	}
	env, err := seal(data, key)
	if err != nil {
		return nil, err
	}
	return []node.Preview{{Base64: env, Type: node.KindImage, Format: format}}, nil
}

func (a *PreviewAnimation) Schema() node.Schema {
	return node.Schema{
		Name:        NamePreviewAnimation,
		DisplayName: "Preview Animation (Privacy)",
		Category:    "image",
		Inputs: []node.Input{
			{Name: "images", Type: node.TypeImage},
			{Name: "fps", Type: node.TypeFloat, Default: DefaultFPS, Min: MinFPS, Max: MaxFPS, Step: 0.1},
			clientIDInput,
		},
		OutputNode: true,
	}
}

func (a *PreviewAnimation) Execute(ctx context.Context, in node.Values) (node.Result, error) {
	images, err := in.Images("images")
	if err != nil {
		return node.Result{}, err
	}
	fps, err := in.Float("fps")
	if err != nil {
		return node.Result{}, err
	}
	clientID, err := in.String(inputClientID)
	if err != nil {
		return node.Result{}, err
	}
	previews, err := a.Preview(ctx, PreviewAnimationRequest{Images: images, FPS: fps, ClientID: clientID})
	if err != nil {
		return node.Result{}, err
	}
	return node.Previews(previews...), nil
}
