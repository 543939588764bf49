package adapters

import (
	"context"

	"github.com/ramnodes/ramnodes/pkg/node"
)

const (
	NamePreviewVideo = "PreviewVideoInRAM"

	DefaultVideoMimeType = "video/mp4"
)

type PreviewVideoRequest struct {
	VideoData []byte
	// MimeType defaults to DefaultVideoMimeType.
	MimeType string
	ClientID string
}

// PreviewVideo obfuscates an already encoded video stream.
type PreviewVideo struct {
	keys KeySource
}

func NewPreviewVideo(keys KeySource) *PreviewVideo {
	return &PreviewVideo{keys: keys}
}

func (a *PreviewVideo) Preview(_ context.Context, req PreviewVideoRequest) ([]node.Preview, error) {
	if err := checkClientID(req.ClientID); err != nil {
		return nil, err
	}
	if len(req.VideoData) == 0 {
		return []node.Preview{}, nil
	}
	key, err := sessionKey(a.keys, req.ClientID)
	if err != nil {
		return nil, err
	}
	env, err := seal(req.VideoData, key)
	if err != nil {
		return nil, err
	}
	mime := req.MimeType
	if mime == "" {
		mime = DefaultVideoMimeType
	}
	return []node.Preview{{Base64: env, Type: node.KindVideo, MimeType: mime}}, nil
}

func (a *PreviewVideo) Schema() node.Schema {
	return node.Schema{
		Name:        NamePreviewVideo,
		DisplayName: "Preview Video (Privacy)",
		Category:    "video",
		Inputs: []node.Input{
			{Name: "video_data", Type: node.TypeVideoBytes},
			{Name: "mime_type", Type: node.TypeString, Default: DefaultVideoMimeType},
			clientIDInput,
		},
		OutputNode: true,
	}
}

func (a *PreviewVideo) Execute(ctx context.Context, in node.Values) (node.Result, error) {
	data, err := in.Bytes("video_data")
	if err != nil {
		return node.Result{}, err
	}
	s, err := stringInputs(in, "mime_type", inputClientID)
	if err != nil {
		return node.Result{}, err
	}
	previews, err := a.Preview(ctx, PreviewVideoRequest{VideoData: data, MimeType: s[0], ClientID: s[1]})
	if err != nil {
		return node.Result{}, err
	}
	return node.Previews(previews...), nil
}
