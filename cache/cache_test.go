package cache

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/justext/justify"
)

func sampleLines() []justify.Line {
	return []justify.Line{
		{Content: "one  two", Break: "\n", Kind: justify.Soft, Tokens: 2, Width: 7.25, Fill: 1},
		{Content: "three", Kind: justify.Last, Tokens: 1, Width: 5},
	}
}

func TestDiskRoundTrip(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	key := NewKey(Request{Text: "one two three", Budget: 10, Seed: 7, Fill: true})
	_, ok, err := d.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Put(key, sampleLines()))
	got, ok, err := d.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleLines(), got)

	require.NoError(t, d.DropAll())
	_, ok, err = d.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNilDiskIsNoop(t *testing.T) {
	var d *Disk
	require.NoError(t, d.Put(Key{}, sampleLines()))
	_, ok, err := d.Get(Key{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", d.Dir())
}

func TestKeyDependsOnEveryInput(t *testing.T) {
	base := Request{Text: "t", Budget: 10, Font: "Body", Size: 4, Thin: "·", Seed: 1, Fill: true}
	variants := []Request{base, base, base, base, base, base, base, base}
	variants[0].Text = "u"
	variants[1].Budget = 11
	variants[2].Font = "Mono"
	variants[3].Size = 5
	variants[4].Thin = "\u2009"
	variants[5].Seed = 2
	variants[6].Fill = false
	variants[7].MaxFill = 3

	require.NotEqual(t, base.Thin, variants[4].Thin)
	seen := map[Key]bool{NewKey(base): true}
	for i, v := range variants {
		k := NewKey(v)
		assert.False(t, seen[k], "variant %d collides", i)
		seen[k] = true
	}
	assert.Equal(t, NewKey(base), NewKey(base))
}

func TestMemoComputesOnce(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)
	m := NewMemo(d)
	key := NewKey(Request{Text: "memo"})

	var calls atomic.Int32
	compute := func() ([]justify.Line, error) {
		calls.Add(1)
		return sampleLines(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := m.Do(key, compute)
			assert.NoError(t, err)
			assert.Equal(t, sampleLines(), got)
		}()
	}
	wg.Wait()

	// 之后的调用走磁盘
	got, err := NewMemo(d).Do(key, compute)
	require.NoError(t, err)
	assert.Equal(t, sampleLines(), got)
	assert.LessOrEqual(t, calls.Load(), int32(8))
	before := calls.Load()
	_, err = NewMemo(d).Do(key, compute)
	require.NoError(t, err)
	assert.Equal(t, before, calls.Load())
}

func TestMemoRewritesCorruptEntry(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)
	key := NewKey(Request{Text: "corrupt", Seed: 3})

	p := d.pathFor(key)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte{0xc1, 0xff, 0x00}, 0o644))
	_, _, err = d.Get(key)
	require.Error(t, err)

	var reported []error
	m := NewMemo(d)
	m.OnError = func(_ Key, err error) { reported = append(reported, err) }

	var calls int
	compute := func() ([]justify.Line, error) {
		calls++
		return sampleLines(), nil
	}
	got, err := m.Do(key, compute)
	require.NoError(t, err)
	assert.Equal(t, sampleLines(), got)
	assert.Equal(t, 1, calls)
	require.Len(t, reported, 1)

	// 损坏的条目已被覆盖，下一次直接命中
	lines, ok, err := d.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleLines(), lines)

	_, err = m.Do(key, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, reported, 1)
}
