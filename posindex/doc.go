// Package posindex is an in-memory index of record positions in a
// data file, stored as a flat sequence of uint64 values: two per entry,
// offset followed by length.
//
// # Binary format
//
// The serialized form is the raw sequence of uint64 values in entry
// order, 16 bytes per entry, little-endian. There is no header, length
// prefix or checksum. This is the same layout as an array of native
// 64-bit integers dumped on little-endian machines (amd64, arm64),
// which is the only interchange we support: files written with 32-bit
// integers or on big-endian machines can't be read.
//
// # Index files
//
// Save and Load wrap the binary format in gzip at best compression.
// A 0-byte file is a valid empty index.
package posindex
