// Package node describes the contract between payload adapters and the host
// pipeline that invokes them.
//
// The host hands each node a loosely typed Values map. Values are checked
// against the node's Schema once, in Registry.Execute, and read through the
// typed accessors on Values.
package node

import (
	"context"
	"image"
)

// Type names a value kind flowing between pipeline nodes.
type Type string

const (
	TypeString     Type = "STRING"
	TypeFloat      Type = "FLOAT"
	TypeImage      Type = "IMAGE"
	TypeMask       Type = "MASK"
	TypeVideoBytes Type = "VIDEO_BYTES"
)

type Input struct {
	Name      string      `json:"name"`
	Type      Type        `json:"type"`
	Optional  bool        `json:"optional,omitempty"`
	Default   interface{} `json:"default,omitempty"`
	Multiline bool        `json:"multiline,omitempty"`
	Min       float64     `json:"min,omitempty"`
	Max       float64     `json:"max,omitempty"`
	Step      float64     `json:"step,omitempty"`
}

type Schema struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Category    string   `json:"category"`
	Inputs      []Input  `json:"inputs"`
	Outputs     []Type   `json:"outputs"`
	OutputNames []string `json:"output_names,omitempty"`
	// OutputNode marks nodes whose result is shown to the client rather than
	// fed to other nodes.
	OutputNode bool `json:"output_node"`
}

// Preview kinds.
const (
	KindImage = "image"
	KindVideo = "video"
	KindText  = "text"
)

// Preview describes one obfuscated payload for the client to render.
type Preview struct {
	Base64   string `json:"base64"`
	Type     string `json:"type"`
	Format   string `json:"format,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

type UI struct {
	Previews []Preview `json:"previews"`
}

type Result struct {
	// Outputs are positional and match Schema.Outputs.
	Outputs []interface{}
	UI      *UI
}

// Previews returns a Result carrying only UI previews. A nil or empty list
// yields an empty, non-nil preview list.
func Previews(p ...Preview) Result {
	if p == nil {
		p = []Preview{}
	}
	return Result{UI: &UI{Previews: p}}
}

type Node interface {
	Schema() Schema
	Execute(ctx context.Context, in Values) (Result, error)
}

// Fingerprinter is implemented by nodes whose re-execution can be skipped
// by the host when the fingerprint of their inputs is unchanged.
type Fingerprinter interface {
	Fingerprint(in Values) (string, error)
}

// Images is the IMAGE value: a batch of frames.
type Images []image.Image

// Masks is the MASK value: one mask per frame.
type Masks []*image.Gray
