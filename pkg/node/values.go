package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
)

var (
	ErrMissingInput = errors.New("missing required input")
	ErrWrongType    = errors.New("wrong input type")
)

type InputError struct {
	Input string
	Err   error
}

func (e InputError) Error() string {
	return fmt.Sprintf("input %q: %v", e.Input, e.Err)
}

func (e InputError) Unwrap() error {
	return e.Err
}

// Values are the named inputs of one node invocation as supplied by the host.
type Values map[string]interface{}

func (v Values) String(name string) (string, error) {
	switch s := v[name].(type) {
	case string:
		return s, nil
	case nil:
		return "", InputError{Input: name, Err: ErrMissingInput}
	default:
		return "", wrongType(name, s)
	}
}

func (v Values) Float(name string) (float64, error) {
	switch f := v[name].(type) {
	case float64:
		return f, nil
	case float32:
		return float64(f), nil
	case int:
		return float64(f), nil
	case int64:
		return float64(f), nil
	case json.Number:
		x, err := f.Float64()
		if err != nil {
			return 0, InputError{Input: name, Err: err}
		}
		return x, nil
	case nil:
		return 0, InputError{Input: name, Err: ErrMissingInput}
	default:
		return 0, wrongType(name, f)
	}
}

func (v Values) Bytes(name string) ([]byte, error) {
	switch b := v[name].(type) {
	case []byte:
		return b, nil
	case nil:
		return nil, InputError{Input: name, Err: ErrMissingInput}
	default:
		return nil, wrongType(name, b)
	}
}

// Images accepts a batch or a single frame.
func (v Values) Images(name string) (Images, error) {
	switch im := v[name].(type) {
	case Images:
		return im, nil
	case []image.Image:
		return Images(im), nil
	case image.Image:
		return Images{im}, nil
	case nil:
		return nil, InputError{Input: name, Err: ErrMissingInput}
	default:
		return nil, wrongType(name, im)
	}
}

func (v Values) check(in Input) error {
	var err error
	switch in.Type {
	case TypeString:
		_, err = v.String(in.Name)
	case TypeFloat:
		_, err = v.Float(in.Name)
	case TypeVideoBytes:
		_, err = v.Bytes(in.Name)
	case TypeImage:
		_, err = v.Images(in.Name)
	}
	return err
}

func wrongType(name string, got interface{}) error {
	return InputError{Input: name, Err: fmt.Errorf("%w: %T", ErrWrongType, got)}
}
