package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/ramnodes/ramnodes/pkg/adapters"
	"github.com/ramnodes/ramnodes/pkg/codec"
	"github.com/ramnodes/ramnodes/pkg/envelope"
	"github.com/ramnodes/ramnodes/pkg/keyring"
	"github.com/ramnodes/ramnodes/pkg/node"
)

const (
	// NodePath executes one node, FingerprintPath returns its change
	// fingerprint. Both take the node's input values as a JSON object.
	NodePath        = NodesPath + "/{name}"
	FingerprintPath = NodePath + "/fingerprint"

	maxInvokeBytes = 64 << 20
)

var errNoCodec = errors.New("no image codec configured")

// ImageCodec moves IMAGE and MASK values over the wire as base64 encoded
// image files.
type ImageCodec interface {
	codec.ImageDecoder
	codec.ImageEncoder
}

type invokeResponse struct {
	Outputs []interface{} `json:"outputs"`
	UI      *node.UI      `json:"ui,omitempty"`
}

type fingerprintResponse struct {
	// Fingerprint is null for nodes that always re-execute.
	Fingerprint *string `json:"fingerprint"`
}

type nodeHandler struct {
	nodes *node.Registry
	codec ImageCodec
}

func (h *nodeHandler) execute(w http.ResponseWriter, r *http.Request) {
	name, in, ok := h.values(w, r)
	if !ok {
		return
	}
	res, err := h.nodes.Execute(r.Context(), name, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := invokeResponse{Outputs: make([]interface{}, len(res.Outputs)), UI: res.UI}
	for i, out := range res.Outputs {
		if resp.Outputs[i], err = h.encodeOutput(out); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	render.JSON(w, r, resp)
}

func (h *nodeHandler) fingerprint(w http.ResponseWriter, r *http.Request) {
	name, in, ok := h.values(w, r)
	if !ok {
		return
	}
	fp, ok, err := h.nodes.Fingerprint(name, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var resp fingerprintResponse
	if ok {
		resp.Fingerprint = &fp
	}
	render.JSON(w, r, resp)
}

// values reads the request body into node values, decoding media inputs
// according to the node's schema.
func (h *nodeHandler) values(w http.ResponseWriter, r *http.Request) (string, node.Values, bool) {
	name := chi.URLParam(r, "name")
	n, ok := h.nodes.Get(name)
	if !ok {
		h.fail(w, r, fmt.Errorf("%w: %s", node.ErrUnknownNode, name))
		return "", nil, false
	}
	var in node.Values
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInvokeBytes))
	dec.UseNumber()
	if err := dec.Decode(&in); err != nil {
		h.text(w, r, http.StatusBadRequest, "invalid request body")
		return "", nil, false
	}
	if in == nil {
		in = node.Values{}
	}
	for _, input := range n.Schema().Inputs {
		v, ok := in[input.Name]
		if !ok {
			continue
		}
		var err error
		switch input.Type {
		case node.TypeImage:
			in[input.Name], err = h.decodeImages(v)
		case node.TypeVideoBytes:
			in[input.Name], err = decodeBytes(v)
		}
		if err != nil {
			h.fail(w, r, node.InputError{Input: input.Name, Err: err})
			return "", nil, false
		}
	}
	return name, in, true
}

func (h *nodeHandler) decodeImages(v interface{}) (node.Images, error) {
	var files []interface{}
	switch x := v.(type) {
	case []interface{}:
		files = x
	default:
		files = []interface{}{x}
	}
	if len(files) > 0 && h.codec == nil {
		return nil, errNoCodec
	}
	images := make(node.Images, 0, len(files))
	for _, f := range files {
		b, err := decodeBytes(f)
		if err != nil {
			return nil, err
		}
		d, err := h.codec.DecodeImage(b)
		if err != nil {
			return nil, err
		}
		images = append(images, d.Image)
	}
	return images, nil
}

func decodeBytes(v interface{}) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %T", node.ErrWrongType, v)
	}
	return base64.StdEncoding.DecodeString(s)
}

func (h *nodeHandler) encodeOutput(v interface{}) (interface{}, error) {
	var frames []image.Image
	switch x := v.(type) {
	case node.Images:
		frames = x
	case node.Masks:
		for _, m := range x {
			frames = append(frames, m)
		}
	default:
		return v, nil
	}
	if len(frames) > 0 && h.codec == nil {
		return nil, errNoCodec
	}
	files := make([]string, len(frames))
	for i, f := range frames {
		b, _, err := h.codec.EncodeImage(f)
		if err != nil {
			return nil, err
		}
		files[i] = base64.StdEncoding.EncodeToString(b)
	}
	return files, nil
}

func (h *nodeHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr node.InputError
	switch {
	case errors.Is(err, node.ErrUnknownNode):
		h.text(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &inputErr),
		errors.Is(err, keyring.ErrMissingClientID),
		errors.Is(err, keyring.ErrUnknownClient),
		errors.Is(err, envelope.ErrMalformedEnvelope),
		errors.Is(err, adapters.ErrInvalidEncoding):
		h.text(w, r, http.StatusBadRequest, err.Error())
	default:
		h.text(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func (h *nodeHandler) text(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.PlainText(w, r, msg)
}
