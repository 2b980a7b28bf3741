package posindex

import (
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/jsonline/require"
	"github.com/kjk/jsonline/seq"
)

func mkIndex(n int) *Index {
	ix := New()
	var off uint64
	for i := 0; i < n; i++ {
		length := uint64(i*7 + 2)
		ix.Append(Entry{Offset: off, Length: length})
		off += length + 1
	}
	return ix
}

func TestAtNegative(t *testing.T) {
	ix := FromEntries(Entry{0, 7}, Entry{8, 7}, Entry{16, 3})
	assert.Equal(t, 3, ix.Len())

	e, err := ix.At(0)
	assert.NoError(t, err)
	assert.Equal(t, Entry{0, 7}, e)
	e, err = ix.At(-1)
	assert.NoError(t, err)
	assert.Equal(t, Entry{16, 3}, e)
	assert.Equal(t, uint64(19), e.End())
	e, err = ix.At(-3)
	assert.NoError(t, err)
	assert.Equal(t, Entry{0, 7}, e)

	for _, i := range []int{3, 4, -4, 100} {
		_, err = ix.At(i)
		assert.True(t, errors.Is(err, ErrOutOfRange), "At(%d)", i)
	}
	_, err = New().At(0)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestSet(t *testing.T) {
	ix := FromEntries(Entry{0, 1}, Entry{2, 1})
	require.NoError(t, ix.Set(-1, Entry{5, 5}))
	require.NoError(t, ix.Set(0, Entry{1, 1}))
	assert.Equal(t, []Entry{{1, 1}, {5, 5}}, ix.Entries())
	assert.True(t, errors.Is(ix.Set(2, Entry{}), ErrOutOfRange))
	assert.True(t, errors.Is(ix.Set(-3, Entry{}), ErrOutOfRange))
}

func TestInsertDelete(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert(0, Entry{10, 1}))
	require.NoError(t, ix.Insert(0, Entry{0, 1}))
	require.NoError(t, ix.Insert(2, Entry{20, 1}))
	require.NoError(t, ix.Insert(1, Entry{5, 1}))
	assert.Equal(t, []Entry{{0, 1}, {5, 1}, {10, 1}, {20, 1}}, ix.Entries())

	assert.True(t, errors.Is(ix.Insert(5, Entry{}), ErrOutOfRange))
	assert.True(t, errors.Is(ix.Insert(-1, Entry{}), ErrOutOfRange))

	require.NoError(t, ix.Delete(1))
	assert.Equal(t, []Entry{{0, 1}, {10, 1}, {20, 1}}, ix.Entries())
	require.NoError(t, ix.Delete(-1))
	assert.Equal(t, []Entry{{0, 1}, {10, 1}}, ix.Entries())
	require.NoError(t, ix.Delete(0))
	require.NoError(t, ix.Delete(0))
	assert.Equal(t, 0, ix.Len())
	assert.True(t, errors.Is(ix.Delete(0), ErrOutOfRange))
}

func TestMarshalLayout(t *testing.T) {
	ix := FromEntries(Entry{Offset: 1, Length: 2})
	d := ix.Marshal()
	exp := []byte{1, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0}
	assert.Equal(t, exp, d)
	assert.Equal(t, 0, len(New().Marshal()))
}

func TestReadFrom(t *testing.T) {
	ix := mkIndex(1000)
	d := ix.Marshal()
	assert.Equal(t, 1000*entrySize, len(d))

	// spans several read chunks, last one partial
	ix3, err := ReadFrom(bytes.NewReader(d))
	require.NoError(t, err)
	assert.True(t, ix.Equal(ix3))

	ix4, err := ReadFrom(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, ix4.Len())
}

func TestReadFromCorrupt(t *testing.T) {
	d := mkIndex(3).Marshal()
	for _, n := range []int{1, 8, 15} {
		_, err := ReadFrom(bytes.NewReader(d[:len(d)-n]))
		assert.True(t, errors.Is(err, ErrCorrupt), "ReadFrom() trimmed by %d", n)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, mkIndex(5).Equal(mkIndex(5)))
	assert.False(t, mkIndex(5).Equal(mkIndex(4)))
	ix := mkIndex(5)
	require.NoError(t, ix.Set(2, Entry{1, 1}))
	assert.False(t, mkIndex(5).Equal(ix))
}

func TestSequence(t *testing.T) {
	ix := mkIndex(10)
	it, errFn := seq.All[Entry](ix)
	n := 0
	for i, e := range it {
		exp, err := ix.At(i)
		assert.NoError(t, err)
		assert.Equal(t, exp, e)
		n++
	}
	assert.NoError(t, errFn())
	assert.Equal(t, 10, n)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json.idx")
	ix := mkIndex(2000)
	require.NoError(t, Save(path, ix))

	ix2, err := Load(path)
	require.NoError(t, err)
	assert.True(t, ix.Equal(ix2))

	// readable by any gzip implementation
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r, err := gzip.NewReader(f)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	assert.Equal(t, ix.Marshal(), buf.Bytes())

	// overwrite with a smaller index
	require.NoError(t, Save(path, mkIndex(1)))
	ix3, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, ix3.Len())
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json.idx")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	ix, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())

	require.NoError(t, Save(path, New()))
	ix, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.idx"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	path := filepath.Join(dir, "bad.idx")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}
