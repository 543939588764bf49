// Package keyring holds the per-client session keys used to obfuscate media
// payloads.
//
// A Registry maps an opaque client identifier to the most recently issued
// key for it. Keys are kept in memory only. By default entries live for the
// life of the process; Options can bound the registry by client count or by
// key age.
//
// Client identifiers are not authenticated: anyone presenting an identifier
// may issue or look up its key.
package keyring

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// KeySize is the length in bytes of every session key.
const KeySize = 32

var (
	ErrMissingClientID = errors.New("client id is required")
	ErrUnknownClient   = errors.New("no session key for client id")
)

type Options struct {
	// MaxClients bounds the number of live keys. When full, the key of the
	// least recently used client is dropped. Zero means unbounded.
	MaxClients int
	// TTL expires keys older than the given age on lookup. Zero disables
	// expiry.
	TTL time.Duration
	// OnEvict is called with the client id whenever a key is dropped because
	// of MaxClients or TTL. Called with the registry lock held.
	OnEvict func(clientID string)

	// Rand and Now are overridable for tests.
	Rand io.Reader
	Now  func() time.Time
}

type Registry struct {
	mu    sync.Mutex
	store store
	ttl   time.Duration

	onEvict func(string)
	rand    io.Reader
	now     func() time.Time
}

func New(opts Options) (*Registry, error) {
	if opts.MaxClients < 0 {
		return nil, fmt.Errorf("invalid max clients %d", opts.MaxClients)
	}
	if opts.TTL < 0 {
		return nil, fmt.Errorf("invalid ttl %s", opts.TTL)
	}
	r := &Registry{
		ttl:     opts.TTL,
		onEvict: opts.OnEvict,
		rand:    opts.Rand,
		now:     opts.Now,
	}
	if r.rand == nil {
		r.rand = rand.Reader
	}
	if r.now == nil {
		r.now = time.Now
	}
	if opts.MaxClients > 0 {
		s, err := newLRUStore(opts.MaxClients, opts.OnEvict)
		if err != nil {
			return nil, err
		}
		r.store = s
	} else {
		r.store = mapStore{}
	}
	return r, nil
}

// Issue generates a new key for clientID, replacing any previous one, and
// returns a copy of it.
func (r *Registry) Issue(clientID string) ([]byte, error) {
	if clientID == "" {
		return nil, ErrMissingClientID
	}
	// Generated outside the lock so a failed read leaves no trace.
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r.rand, key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	out := make([]byte, KeySize)
	copy(out, key)

	r.mu.Lock()
	r.store.put(clientID, entry{key: key, issued: r.now()})
	r.mu.Unlock()
	return out, nil
}

// Lookup returns a copy of the current key for clientID.
func (r *Registry) Lookup(clientID string) ([]byte, bool) {
	if clientID == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.store.get(clientID)
	if !ok {
		return nil, false
	}
	if r.ttl > 0 && r.now().Sub(e.issued) > r.ttl {
		r.store.remove(clientID)
		if r.onEvict != nil {
			r.onEvict(clientID)
		}
		return nil, false
	}
	out := make([]byte, len(e.key))
	copy(out, e.key)
	return out, true
}

// Forget drops the key for clientID, if any.
func (r *Registry) Forget(clientID string) {
	r.mu.Lock()
	r.store.remove(clientID)
	r.mu.Unlock()
}

// Len returns the number of stored keys, including ones that have expired
// but not been looked up since.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.len()
}
