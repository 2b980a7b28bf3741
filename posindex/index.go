package posindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/kjk/jsonline/seq"
)

const (
	// size in bytes of a single uint64
	wordSize = 8
	// size in bytes of a serialized Entry
	entrySize = 2 * wordSize
	// ReadFrom reads its input in chunks of this size
	readChunkSize = 4096
)

var (
	ErrOutOfRange = errors.New("position out of range")
	// ErrCorrupt is returned when serialized data is not a whole number of entries
	ErrCorrupt = errors.New("corrupt position index")

	_ seq.Sequence[Entry] = &Index{}
)

// Entry locates a record in a data file
type Entry struct {
	// where the record starts
	Offset uint64
	// size of the record, not including the newline that follows it
	Length uint64
}

// End returns the offset just past the record
func (e Entry) End() uint64 {
	return e.Offset + e.Length
}

type Index struct {
	// offset and length of entry i are at data[2*i] and data[2*i+1]
	data []uint64
}

func New() *Index {
	return &Index{}
}

// FromEntries creates an index with a copy of entries
func FromEntries(entries ...Entry) *Index {
	ix := &Index{
		data: make([]uint64, 0, 2*len(entries)),
	}
	for _, e := range entries {
		ix.Append(e)
	}
	return ix
}

func (ix *Index) Len() int {
	return len(ix.data) / 2
}

func (ix *Index) pos(i int) (int, error) {
	n := ix.Len()
	i2, ok := seq.Normalize(i, n)
	if !ok {
		return 0, fmt.Errorf("%w: %d not in [%d, %d)", ErrOutOfRange, i, -n, n)
	}
	return i2, nil
}

// At returns entry i. Negative i counts from the end.
func (ix *Index) At(i int) (Entry, error) {
	i, err := ix.pos(i)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Offset: ix.data[2*i], Length: ix.data[2*i+1]}, nil
}

// Set overwrites entry i. Negative i counts from the end.
func (ix *Index) Set(i int, e Entry) error {
	i, err := ix.pos(i)
	if err != nil {
		return err
	}
	ix.data[2*i] = e.Offset
	ix.data[2*i+1] = e.Length
	return nil
}

// Insert inserts e before entry i. i must be in [0, Len()].
func (ix *Index) Insert(i int, e Entry) error {
	n := ix.Len()
	if i < 0 || i > n {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, i, n)
	}
	ix.data = append(ix.data, 0, 0)
	copy(ix.data[2*i+2:], ix.data[2*i:])
	ix.data[2*i] = e.Offset
	ix.data[2*i+1] = e.Length
	return nil
}

// Delete removes entry i. Negative i counts from the end.
func (ix *Index) Delete(i int) error {
	i, err := ix.pos(i)
	if err != nil {
		return err
	}
	ix.data = append(ix.data[:2*i], ix.data[2*i+2:]...)
	return nil
}

func (ix *Index) Append(e Entry) {
	ix.data = append(ix.data, e.Offset, e.Length)
}

// Entries returns a copy of all entries
func (ix *Index) Entries() []Entry {
	n := ix.Len()
	res := make([]Entry, n)
	for i := range res {
		res[i] = Entry{Offset: ix.data[2*i], Length: ix.data[2*i+1]}
	}
	return res
}

// Equal returns true if both indexes have the same entries
func (ix *Index) Equal(other *Index) bool {
	if len(ix.data) != len(other.data) {
		return false
	}
	for i, v := range ix.data {
		if other.data[i] != v {
			return false
		}
	}
	return true
}

// Marshal returns the binary form of the index
func (ix *Index) Marshal() []byte {
	res := make([]byte, 0, len(ix.data)*wordSize)
	for _, v := range ix.data {
		res = binary.LittleEndian.AppendUint64(res, v)
	}
	return res
}

// WriteTo writes the binary form of the index to w
func (ix *Index) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(ix.Marshal())
	return int64(n), err
}

// ReadFrom decodes the binary form from r, reading it in fixed-size
// chunks so that the size of the data doesn't have to be known upfront
func ReadFrom(r io.Reader) (*Index, error) {
	ix := New()
	// readChunkSize is a multiple of entrySize so only the last chunk
	// can end in the middle of an entry
	buf := make([]byte, readChunkSize)
	for {
		n, err := io.ReadFull(r, buf)
		eof := err == io.EOF || err == io.ErrUnexpectedEOF
		if err != nil && !eof {
			return nil, err
		}
		if n%entrySize != 0 {
			return nil, fmt.Errorf("%w: trailing %d bytes", ErrCorrupt, n%entrySize)
		}
		for i := 0; i < n; i += wordSize {
			ix.data = append(ix.data, binary.LittleEndian.Uint64(buf[i:]))
		}
		if eof {
			return ix, nil
		}
	}
}
