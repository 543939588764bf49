package keyring

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, opts Options) *Registry {
	r, err := New(opts)
	require.NoError(t, err)
	return r
}

func TestRegistryIssueLookup(t *testing.T) {
	r := newTestRegistry(t, Options{})
	k, err := r.Issue("alice")
	require.NoError(t, err)
	assert.Len(t, k, KeySize)

	got, ok := r.Lookup("alice")
	assert.True(t, ok)
	assert.Equal(t, k, got)
}

func TestRegistryOverwrite(t *testing.T) {
	r := newTestRegistry(t, Options{})
	k1, err := r.Issue("alice")
	require.NoError(t, err)
	k2, err := r.Issue("alice")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	got, ok := r.Lookup("alice")
	assert.True(t, ok)
	assert.Equal(t, k2, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryUnknown(t *testing.T) {
	r := newTestRegistry(t, Options{})
	_, ok := r.Lookup("unknown-client")
	assert.False(t, ok)
	_, ok = r.Lookup("")
	assert.False(t, ok)
}

func TestRegistryMissingClientID(t *testing.T) {
	r := newTestRegistry(t, Options{})
	_, err := r.Issue("")
	assert.ErrorIs(t, err, ErrMissingClientID)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryLookupReturnsCopy(t *testing.T) {
	r := newTestRegistry(t, Options{})
	k, err := r.Issue("alice")
	require.NoError(t, err)
	k[0] ^= 0xff
	got, _ := r.Lookup("alice")
	got[1] ^= 0xff
	again, _ := r.Lookup("alice")
	assert.NotEqual(t, k, again)
	assert.NotEqual(t, got, again)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestRegistryRandFailure(t *testing.T) {
	r := newTestRegistry(t, Options{Rand: failingReader{}})
	_, err := r.Issue("alice")
	assert.Error(t, err)
	_, ok := r.Lookup("alice")
	assert.False(t, ok)
}

func TestRegistryInvalidOptions(t *testing.T) {
	_, err := New(Options{MaxClients: -1})
	assert.Error(t, err)
	_, err = New(Options{TTL: -time.Second})
	assert.Error(t, err)
}

func TestRegistryMaxClients(t *testing.T) {
	var evicted []string
	r := newTestRegistry(t, Options{
		MaxClients: 2,
		OnEvict:    func(id string) { evicted = append(evicted, id) },
	})
	_, _ = r.Issue("a")
	_, _ = r.Issue("b")
	_, ok := r.Lookup("a") // a is now most recently used
	require.True(t, ok)
	_, _ = r.Issue("c")

	_, ok = r.Lookup("b")
	assert.False(t, ok)
	_, ok = r.Lookup("a")
	assert.True(t, ok)
	_, ok = r.Lookup("c")
	assert.True(t, ok)
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, 2, r.Len())

	// Overwrite and explicit removal are not evictions.
	_, _ = r.Issue("a")
	r.Forget("c")
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryTTL(t *testing.T) {
	now := time.Unix(1700000000, 0)
	var evicted []string
	r := newTestRegistry(t, Options{
		TTL:     time.Minute,
		Now:     func() time.Time { return now },
		OnEvict: func(id string) { evicted = append(evicted, id) },
	})
	k, err := r.Issue("alice")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	got, ok := r.Lookup("alice")
	assert.True(t, ok)
	assert.Equal(t, k, got)

	now = now.Add(time.Second)
	_, ok = r.Lookup("alice")
	assert.False(t, ok)
	assert.Equal(t, []string{"alice"}, evicted)
	assert.Equal(t, 0, r.Len())
}

func TestStoreWipesReplacedKeys(t *testing.T) {
	old := bytes.Repeat([]byte{0xaa}, KeySize)
	m := mapStore{}
	m.put("a", entry{key: old})
	m.put("a", entry{key: bytes.Repeat([]byte{0xbb}, KeySize)})
	assert.Equal(t, make([]byte, KeySize), old)

	old = bytes.Repeat([]byte{0xaa}, KeySize)
	s, err := newLRUStore(1, nil)
	require.NoError(t, err)
	s.put("a", entry{key: old})
	s.put("b", entry{key: bytes.Repeat([]byte{0xbb}, KeySize)})
	assert.Equal(t, make([]byte, KeySize), old)
}

func TestRegistryConcurrent(t *testing.T) {
	for _, opts := range []Options{{}, {MaxClients: 1000}} {
		r := newTestRegistry(t, opts)
		const n = 100
		issued := make([][]byte, n)
		observed := make([][][]byte, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			i := i
			id := fmt.Sprintf("client-%d", i)
			wg.Add(2)
			go func() {
				defer wg.Done()
				k, err := r.Issue(id)
				if err != nil {
					t.Error(err)
					return
				}
				issued[i] = k
			}()
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					if k, ok := r.Lookup(id); ok {
						observed[i] = append(observed[i], k)
					}
				}
			}()
		}
		wg.Wait()

		seen := make(map[string]int)
		for i := 0; i < n; i++ {
			got, ok := r.Lookup(fmt.Sprintf("client-%d", i))
			require.True(t, ok)
			assert.Equal(t, issued[i], got)
			if prev, dup := seen[string(got)]; dup {
				t.Fatalf("client-%d and client-%d share a key", prev, i)
			}
			seen[string(got)] = i
			for _, k := range observed[i] {
				assert.Equal(t, issued[i], k, "client-%d saw a foreign key", i)
			}
		}
	}
}
