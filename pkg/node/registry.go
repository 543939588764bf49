package node

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrUnknownNode = errors.New("unknown node")

// Observer receives one call per executed node.
type Observer interface {
	NodeExecuted(name string, d time.Duration, err error)
}

type Registry struct {
	nodes    map[string]Node
	order    []string
	observer Observer
}

func NewRegistry(observer Observer) *Registry {
	return &Registry{
		nodes:    make(map[string]Node),
		observer: observer,
	}
}

// Register adds nodes under their schema names. It is not safe to call
// concurrently with Execute; register everything at startup.
func (r *Registry) Register(nodes ...Node) error {
	for _, n := range nodes {
		name := n.Schema().Name
		if name == "" {
			return errors.New("node without a name")
		}
		if _, ok := r.nodes[name]; ok {
			return fmt.Errorf("duplicate node %q", name)
		}
		r.nodes[name] = n
		r.order = append(r.order, name)
	}
	return nil
}

func (r *Registry) Get(name string) (Node, bool) {
	n, ok := r.nodes[name]
	return n, ok
}

// Schemas returns the schemas of all nodes in registration order.
func (r *Registry) Schemas() []Schema {
	ss := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		ss = append(ss, r.nodes[name].Schema())
	}
	return ss
}

// Execute runs the named node after filling defaults and checking inputs
// against its schema. The host's Values are not modified.
func (r *Registry) Execute(ctx context.Context, name string, in Values) (Result, error) {
	n, vals, err := r.prepare(name, in)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	res, err := n.Execute(ctx, vals)
	if r.observer != nil {
		r.observer.NodeExecuted(name, time.Since(start), err)
	}
	return res, err
}

// Fingerprint returns the change fingerprint for a node invocation. ok is
// false for nodes that always re-execute.
func (r *Registry) Fingerprint(name string, in Values) (fp string, ok bool, err error) {
	n, vals, err := r.prepare(name, in)
	if err != nil {
		return "", false, err
	}
	f, ok := n.(Fingerprinter)
	if !ok {
		return "", false, nil
	}
	fp, err = f.Fingerprint(vals)
	return fp, err == nil, err
}

func (r *Registry) prepare(name string, in Values) (Node, Values, error) {
	n, ok := r.nodes[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	vals := make(Values, len(in))
	for k, v := range in {
		vals[k] = v
	}
	for _, input := range n.Schema().Inputs {
		if vals[input.Name] == nil {
			if input.Default != nil {
				vals[input.Name] = input.Default
			} else if input.Optional {
				continue
			} else {
				return nil, nil, InputError{Input: input.Name, Err: ErrMissingInput}
			}
		}
		if err := vals.check(input); err != nil {
			return nil, nil, err
		}
	}
	return n, vals, nil
}
