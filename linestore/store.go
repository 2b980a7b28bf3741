package linestore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/kjk/jsonline/log"
	"github.com/kjk/jsonline/lru"
	"github.com/kjk/jsonline/posindex"
	"github.com/kjk/jsonline/seq"
)

const (
	DataExt  = ".json"
	IndexExt = ".json.idx"

	DefaultCacheSize = 10
)

var (
	ErrOutOfRange = posindex.ErrOutOfRange
	// ErrCodec wraps errors from encoding or decoding a record
	ErrCodec = errors.New("codec error")
	// ErrIO wraps errors from reading or writing the data and index files
	ErrIO = errors.New("i/o error")
	// ErrClosed is returned when using a store after Close()
	ErrClosed = errors.New("store is closed")

	_ seq.Sequence[any] = &Store[any]{}
)

type Options struct {
	// number of decoded records kept in memory. 0 means DefaultCacheSize (10),
	// not "no cache". A negative value disables caching.
	CacheSize int
	// used for values Codec can't encode (channels, funcs, complex
	// numbers, NaN) found in the record or inside its map[string]any
	// and []any values
	Default DefaultFunc
	// JSONiter if nil
	Codec Codec
	// if true, the data file is synced after every Append and Extend
	SyncWrite bool
}

type Stats struct {
	CacheHits      int64
	CacheMisses    int64
	CacheEvictions int64
	Appended       int64
	Rebuilds       int64
}

type Store[T any] struct {
	dataPath  string
	indexPath string

	codec     Codec
	defaultFn DefaultFunc
	syncWrite bool

	index *posindex.Index
	cache *lru.Cache[int, T]
	// read-only handle to the data file, nil after Close()
	dataFile *os.File

	appended int64
	rebuilds int64
}

func ioErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}

// Open opens the store at base path path, creating it if the data file
// doesn't exist. If the index file is missing, it's rebuilt by scanning
// the data file. opts can be nil.
func Open[T any](path string, opts *Options) (*Store[T], error) {
	if path == "" {
		return nil, fmt.Errorf("path is empty")
	}
	if opts == nil {
		opts = &Options{}
	}
	cacheSize := opts.CacheSize
	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	} else if cacheSize < 0 {
		cacheSize = 0
	}
	cache, err := lru.New[int, T](cacheSize)
	if err != nil {
		return nil, err
	}
	s := &Store[T]{
		dataPath:  path + DataExt,
		indexPath: path + IndexExt,
		codec:     opts.Codec,
		defaultFn: opts.Default,
		syncWrite: opts.SyncWrite,
		cache:     cache,
		index:     posindex.New(),
	}
	if s.codec == nil {
		s.codec = JSONiter
	}
	if err = os.MkdirAll(filepath.Dir(s.dataPath), 0755); err != nil {
		return nil, ioErr(err)
	}

	_, err = os.Stat(s.dataPath)
	if errors.Is(err, os.ErrNotExist) {
		if err = s.create(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, ioErr(err)
	}

	if s.dataFile, err = os.Open(s.dataPath); err != nil {
		return nil, ioErr(err)
	}
	_, err = os.Stat(s.indexPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Verbosef("linestore.Open: '%s' doesn't exist, rebuilding\n", s.indexPath)
		err = s.RebuildIndex()
	} else if err == nil {
		err = s.loadIndex()
	} else {
		err = ioErr(err)
	}
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// With opens the store, calls fn and closes the store, even if fn
// returns an error or panics
func With[T any](path string, opts *Options, fn func(s *Store[T]) error) (err error) {
	s, err := Open[T](path, opts)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	return fn(s)
}

// create creates an empty data file and an empty index file
func (s *Store[T]) create() error {
	f, err := os.OpenFile(s.dataPath, os.O_RDONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return ioErr(err)
	}
	s.dataFile = f
	if err = os.WriteFile(s.indexPath, nil, 0644); err != nil {
		s.Close()
		return ioErr(err)
	}
	return nil
}

func (s *Store[T]) loadIndex() error {
	timeStart := time.Now()
	ix, err := posindex.Load(s.indexPath)
	if err != nil {
		if errors.Is(err, posindex.ErrCorrupt) {
			return err
		}
		return ioErr(err)
	}
	s.index = ix
	log.EventWithDuration("jsonline_load", time.Since(timeStart), "path", s.indexPath, "records", ix.Len())
	return nil
}

func (s *Store[T]) saveIndex() error {
	return ioErr(posindex.Save(s.indexPath, s.index))
}

// DataPath returns path of the data file
func (s *Store[T]) DataPath() string {
	return s.dataPath
}

// IndexPath returns path of the index file
func (s *Store[T]) IndexPath() string {
	return s.indexPath
}

// Len returns the number of records
func (s *Store[T]) Len() int {
	return s.index.Len()
}

// Index returns a copy of the position entries
func (s *Store[T]) Index() []posindex.Entry {
	return s.index.Entries()
}

func (s *Store[T]) Stats() Stats {
	cs := s.cache.Stats()
	return Stats{
		CacheHits:      cs.Hits,
		CacheMisses:    cs.Misses,
		CacheEvictions: cs.Evictions,
		Appended:       s.appended,
		Rebuilds:       s.rebuilds,
	}
}

// At returns record i. -1 is the last record.
// Returns an error wrapping ErrOutOfRange if i is not in [-Len(), Len()).
func (s *Store[T]) At(i int) (T, error) {
	var zero T
	if s.dataFile == nil {
		return zero, ErrClosed
	}
	pos, ok := seq.Normalize(i, s.index.Len())
	if !ok {
		return zero, fmt.Errorf("%w: %d not in [%d, %d)", ErrOutOfRange, i, -s.index.Len(), s.index.Len())
	}
	if v, ok := s.cache.Lookup(pos); ok {
		return v, nil
	}
	e, err := s.index.At(pos)
	if err != nil {
		return zero, err
	}
	d, err := s.readRecord(e)
	if err != nil {
		return zero, err
	}
	v, err := s.decode(d)
	if err != nil {
		return zero, fmt.Errorf("record %d: %w", pos, err)
	}
	s.cache.Put(pos, v)
	return v, nil
}

// Get is like At but returns def if i is out of range
func (s *Store[T]) Get(i int, def T) (T, error) {
	v, err := s.At(i)
	if errors.Is(err, ErrOutOfRange) {
		return def, nil
	}
	return v, err
}

// All returns an iterator over records. Call the returned function after
// iteration to check for errors.
func (s *Store[T]) All() (iter.Seq2[int, T], func() error) {
	return seq.All[T](s)
}

func (s *Store[T]) readRecord(e posindex.Entry) ([]byte, error) {
	st, err := s.dataFile.Stat()
	if err != nil {
		return nil, ioErr(err)
	}
	size := uint64(st.Size())
	if e.Offset > size || e.Length > size-e.Offset {
		// the index doesn't match the data file
		return nil, fmt.Errorf("%w: record at offset %d length %d is past end of '%s' (%d bytes)", ErrIO, e.Offset, e.Length, s.dataPath, size)
	}
	buf := make([]byte, e.Length)
	n, err := s.dataFile.ReadAt(buf, int64(e.Offset))
	if n == len(buf) {
		return buf, nil
	}
	if err == io.EOF {
		// the index doesn't match the data file
		return nil, fmt.Errorf("%w: reading %d bytes at offset %d of '%s': got only %d", ErrIO, e.Length, e.Offset, s.dataPath, n)
	}
	return nil, ioErr(err)
}

// appendData appends d to the data file and returns the offset it was
// written at. The write uses its own handle, separate from dataFile.
// If the file doesn't end with '\n', one is written before d.
func (s *Store[T]) appendData(d []byte) (int64, error) {
	f, err := os.OpenFile(s.dataPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return 0, ioErr(err)
	}
	off, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return 0, ioErr(err)
	}
	if off > 0 {
		// the last line may lack its '\n' if the file was written by hand
		var last [1]byte
		if _, err = s.dataFile.ReadAt(last[:], off-1); err != nil {
			f.Close()
			return 0, ioErr(err)
		}
		if last[0] != '\n' {
			d = append([]byte{'\n'}, d...)
			off++
		}
	}
	if _, err = f.Write(d); err != nil {
		f.Close()
		return 0, ioErr(err)
	}
	if s.syncWrite {
		if err = f.Sync(); err != nil {
			f.Close()
			return 0, ioErr(err)
		}
	}
	return off, ioErr(f.Close())
}

// Append appends a record to the data file and updates the index file
func (s *Store[T]) Append(v T) error {
	if s.dataFile == nil {
		return ErrClosed
	}
	d, err := s.encode(v)
	if err != nil {
		return err
	}
	n := uint64(len(d))
	d = append(d, '\n')
	off, err := s.appendData(d)
	if err != nil {
		return err
	}
	s.index.Append(posindex.Entry{Offset: uint64(off), Length: n})
	s.appended++
	err = s.saveIndex()
	s.cache.Clear()
	return err
}

// Extend appends records with a single write to the data file and a
// single update of the index file. The result is the same as calling
// Append for each record.
// If any record fails to encode, nothing is written.
func (s *Store[T]) Extend(records []T) error {
	if s.dataFile == nil {
		return ErrClosed
	}
	if len(records) == 0 {
		return nil
	}
	var buf bytes.Buffer
	// offsets are relative to the end of the data file
	entries := make([]posindex.Entry, 0, len(records))
	for i, v := range records {
		d, err := s.encode(v)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		entries = append(entries, posindex.Entry{Offset: uint64(buf.Len()), Length: uint64(len(d))})
		buf.Write(d)
		buf.WriteByte('\n')
	}
	off, err := s.appendData(buf.Bytes())
	if err != nil {
		return err
	}
	for _, e := range entries {
		e.Offset += uint64(off)
		s.index.Append(e)
	}
	s.appended += int64(len(entries))
	err = s.saveIndex()
	s.cache.Clear()
	return err
}

// scanIndex builds an index by reading the data file line by line
func (s *Store[T]) scanIndex() (*posindex.Index, error) {
	st, err := s.dataFile.Stat()
	if err != nil {
		return nil, ioErr(err)
	}
	ix := posindex.New()
	r := bufio.NewReaderSize(io.NewSectionReader(s.dataFile, 0, st.Size()), 64*1024)
	var off, lineLen uint64
	for {
		chunk, err := r.ReadSlice('\n')
		lineLen += uint64(len(chunk))
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			// last line without a newline
			if lineLen > 0 {
				ix.Append(posindex.Entry{Offset: off, Length: lineLen})
			}
			return ix, nil
		}
		if err != nil {
			return nil, ioErr(err)
		}
		ix.Append(posindex.Entry{Offset: off, Length: lineLen - 1})
		off += lineLen
		lineLen = 0
	}
}

// RebuildIndex re-creates the index by scanning the data file and saves it.
// Use it when the index file might be out of sync with the data file.
func (s *Store[T]) RebuildIndex() error {
	if s.dataFile == nil {
		return ErrClosed
	}
	timeStart := time.Now()
	ix, err := s.scanIndex()
	if err != nil {
		return err
	}
	s.index = ix
	s.rebuilds++
	s.cache.Clear()
	if err = s.saveIndex(); err != nil {
		return err
	}
	log.Verbosef("linestore: rebuilt index of '%s', %d records\n", s.dataPath, ix.Len())
	log.EventWithDuration("jsonline_rebuild", time.Since(timeStart), "path", s.dataPath, "records", ix.Len())
	return nil
}

// Verify scans the data file and compares the result with the index.
// Returns position of the first mismatching entry, or -1 if they match.
// The index is not modified.
func (s *Store[T]) Verify() (int, error) {
	if s.dataFile == nil {
		return 0, ErrClosed
	}
	ix, err := s.scanIndex()
	if err != nil {
		return 0, err
	}
	a, b := s.index.Entries(), ix.Entries()
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i, nil
		}
	}
	if len(a) != len(b) {
		return n, nil
	}
	return -1, nil
}

// Close closes the data file. Safe to call multiple times.
func (s *Store[T]) Close() error {
	if s == nil || s.dataFile == nil {
		return nil
	}
	err := s.dataFile.Close()
	s.dataFile = nil
	s.cache.Clear()
	return ioErr(err)
}
