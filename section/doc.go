// Package section defines the bit-exact on-disk layouts of the baar archive
// container: the fixed 32-byte header and the variable-length index entry
// records that follow the data region.
//
// A container is a single file laid out as:
//
//	header (32 bytes) | data region (opaque blobs) | index
//
// The header stores the byte offset of the trailing index, so appending
// entries only rewrites the index, never the data region. All integers are
// little-endian; strings are u16-length-prefixed raw bytes.
package section
