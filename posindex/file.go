package posindex

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/kjk/jsonline/atomicfile"
)

// Save writes the index to path, gzip-compressed with best compression.
// The previous content of path is replaced atomically.
func Save(path string, ix *Index) error {
	f, err := atomicfile.New(path)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()

	w, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err = ix.WriteTo(w); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	return f.Close()
}

// Load reads an index written by Save
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	// created empty, before anything was appended
	if st.Size() == 0 {
		return New(), nil
	}
	r, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer r.Close()
	ix, err := ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ix, nil
}
