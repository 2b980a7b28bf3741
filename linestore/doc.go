// Package linestore is an append-only store of JSON records with
// random access by position.
//
// # Files
//
// A store opened with base path P uses two files:
//   - P.json: the data file, one JSON-encoded record per line (JSON Lines)
//   - P.json.idx: the index file, gzip-compressed [posindex.Index] with
//     offset and length of every line in the data file
//
// Reading record i looks up its position in the in-memory index and reads
// exactly its bytes from the data file, without scanning the file.
// Decoded records are kept in a small LRU cache.
//
// # Usage
//
//	s, err := linestore.Open[map[string]any]("data/events", nil)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	err = s.Append(map[string]any{"a": 1})
//	rec, err := s.At(-1)
//
// Or, to make sure the store is closed on every path:
//
//	err := linestore.With("data/events", nil, func(s *linestore.Store[any]) error {
//		return s.Extend(records)
//	})
//
// # Consistency
//
// Every Append and Extend writes to the data file and then rewrites the
// index file. If the process dies in between, the index file lacks the
// entries for the records just written. Deleting the index file (it's
// rebuilt on Open) or calling RebuildIndex restores it. The index is not
// validated against the data file on Open, see Verify.
//
// A Store is not safe for concurrent use and assumes it's the only writer
// of its files.
package linestore
