package obfs

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform(t *testing.T) {
	key := []byte("Vaundy")
	tests := []struct {
		name string
		p    []byte
	}{
		{name: "1", p: []byte("HelloWorld")},
		{name: "2", p: []byte("Regret is just a horrible attempt at time travel that ends with you feeling like crap")},
		{name: "shorter than key", p: []byte("hi")},
		{name: "binary", p: []byte{0x00, 0xff, 0x10, 0x7f, 0x80}},
		{name: "empty", p: []byte("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ob, err := Transform(tt.p, key)
			require.NoError(t, err)
			assert.Len(t, ob, len(tt.p))
			back, err := Transform(ob, key)
			require.NoError(t, err)
			if !bytes.Equal(tt.p, back) {
				t.Errorf("Inconsistent transform result: got %v, want %v", back, tt.p)
			}
		})
	}
}

func TestTransformKnownVector(t *testing.T) {
	out, err := Transform([]byte{0x01, 0x02, 0x03, 0x04, 0x05}, []byte{0xff, 0x0f})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xfe, 0x0d, 0xfc, 0x0b, 0xfa}, out)
}

func TestTransformEmptyKey(t *testing.T) {
	for _, data := range [][]byte{nil, {}, []byte("payload")} {
		_, err := Transform(data, nil)
		assert.ErrorIs(t, err, ErrInvalidKey)
		_, err = Transform(data, []byte{})
		assert.ErrorIs(t, err, ErrInvalidKey)
	}
}

func TestTransformRandom(t *testing.T) {
	key := make([]byte, 32)
	in := make([]byte, 1200)
	for i := 0; i < 1000; i++ {
		_, _ = rand.Read(key)
		_, _ = rand.Read(in[:i+1])
		ob, err := Transform(in[:i+1], key)
		require.NoError(t, err)
		back, err := Transform(ob, key)
		require.NoError(t, err)
		if !bytes.Equal(in[:i+1], back) {
			t.Fatal("Transform is not self-inverse")
		}
	}
}

func TestXORObfuscator(t *testing.T) {
	x := XORObfuscator("average_password")
	p := []byte("To be, or not to be, that is the question")
	bs := x.Obfuscate(p)
	assert.Equal(t, p, x.Obfuscate(bs))

	ob, err := Transform(p, x)
	require.NoError(t, err)
	assert.Equal(t, bs, ob)
	assert.Nil(t, XORObfuscator(nil).Obfuscate(p))
}

func BenchmarkTransform(b *testing.B) {
	key := make([]byte, 32)
	in := make([]byte, 1<<20)
	_, _ = rand.Read(key)
	_, _ = rand.Read(in)
	b.SetBytes(int64(len(in)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Transform(in, key)
	}
}
