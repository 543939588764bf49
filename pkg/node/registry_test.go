package node

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoNode struct {
	got Values
}

func (n *echoNode) Schema() Schema {
	return Schema{
		Name:     "Echo",
		Category: "test",
		Inputs: []Input{
			{Name: "text", Type: TypeString, Default: ""},
			{Name: "fps", Type: TypeFloat, Default: 10.0, Min: 0.1, Max: 60, Step: 0.1},
			{Name: "images", Type: TypeImage},
			{Name: "video", Type: TypeVideoBytes, Optional: true},
		},
		Outputs: []Type{TypeString},
	}
}

func (n *echoNode) Execute(_ context.Context, in Values) (Result, error) {
	n.got = in
	s, err := in.String("text")
	if err != nil {
		return Result{}, err
	}
	return Result{Outputs: []interface{}{s}}, nil
}

func (n *echoNode) Fingerprint(in Values) (string, error) {
	s, err := in.String("text")
	return "fp:" + s, err
}

type plainNode struct{}

func (plainNode) Schema() Schema { return Schema{Name: "Plain"} }

func (plainNode) Execute(context.Context, Values) (Result, error) {
	return Result{}, errors.New("failed")
}

type observation struct {
	name string
	err  error
}

type recorder []observation

func (r *recorder) NodeExecuted(name string, _ time.Duration, err error) {
	*r = append(*r, observation{name, err})
}

func newTestRegistry(t *testing.T, obs Observer) (*Registry, *echoNode) {
	echo := &echoNode{}
	r := NewRegistry(obs)
	require.NoError(t, r.Register(echo, plainNode{}))
	return r, echo
}

func TestRegistryExecuteDefaults(t *testing.T) {
	var rec recorder
	r, echo := newTestRegistry(t, &rec)
	in := Values{"images": image.NewRGBA(image.Rect(0, 0, 1, 1))}
	res, err := r.Execute(context.Background(), "Echo", in)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{""}, res.Outputs)

	fps, err := echo.got.Float("fps")
	require.NoError(t, err)
	assert.Equal(t, 10.0, fps)
	imgs, err := echo.got.Images("images")
	require.NoError(t, err)
	assert.Len(t, imgs, 1)
	_, present := in["fps"]
	assert.False(t, present, "caller values must not be modified")
	assert.Equal(t, recorder{{name: "Echo"}}, rec)
}

func TestRegistryExecuteInputErrors(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	tests := []struct {
		name  string
		in    Values
		input string
		is    error
	}{
		{name: "missing required", in: Values{}, input: "images", is: ErrMissingInput},
		{name: "wrong string", in: Values{"text": 3, "images": Images{}}, input: "text", is: ErrWrongType},
		{name: "wrong float", in: Values{"fps": "fast", "images": Images{}}, input: "fps", is: ErrWrongType},
		{name: "wrong bytes", in: Values{"images": Images{}, "video": "abc"}, input: "video", is: ErrWrongType},
		{name: "wrong images", in: Values{"images": "abc"}, input: "images", is: ErrWrongType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Execute(context.Background(), "Echo", tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
			var ie InputError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tt.input, ie.Input)
		})
	}
}

func TestRegistryUnknownAndDuplicate(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	_, err := r.Execute(context.Background(), "Nope", Values{})
	assert.ErrorIs(t, err, ErrUnknownNode)
	assert.Error(t, r.Register(plainNode{}))
	assert.Len(t, r.Schemas(), 2)
	assert.Equal(t, "Echo", r.Schemas()[0].Name)
}

func TestRegistryCanceled(t *testing.T) {
	var rec recorder
	r, echo := newTestRegistry(t, &rec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Execute(ctx, "Echo", Values{"images": Images{}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, echo.got)
	assert.Empty(t, rec)
}

func TestRegistryObservesFailures(t *testing.T) {
	var rec recorder
	r, _ := newTestRegistry(t, &rec)
	_, err := r.Execute(context.Background(), "Plain", nil)
	assert.Error(t, err)
	require.Len(t, rec, 1)
	assert.Equal(t, "Plain", rec[0].name)
	assert.Error(t, rec[0].err)
}

func TestRegistryFingerprint(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	fp, ok, err := r.Fingerprint("Echo", Values{"text": "x", "images": Images{}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fp:x", fp)

	_, ok, err = r.Fingerprint("Plain", Values{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValuesFloat(t *testing.T) {
	v := Values{"a": float32(1.5), "b": 2, "c": json.Number("2.5"), "d": json.Number("x"), "e": int64(4)}
	for name, want := range map[string]float64{"a": 1.5, "b": 2, "c": 2.5, "e": 4} {
		got, err := v.Float(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := v.Float("d")
	assert.Error(t, err)
}

func TestPreviews(t *testing.T) {
	res := Previews()
	require.NotNil(t, res.UI)
	b, err := json.Marshal(res.UI)
	require.NoError(t, err)
	assert.JSONEq(t, `{"previews":[]}`, string(b))

	b, err = json.Marshal(Preview{Base64: "AA==", Type: KindVideo, MimeType: "video/mp4"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"base64":"AA==","type":"video","mime_type":"video/mp4"}`, string(b))
}
