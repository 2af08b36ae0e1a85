// Package formats provides parsers for ROSE Online file formats.
//
// Each parser is a pure function from a byte buffer to an owned model:
//
//	ZMD  skeleton            ParseZMD
//	ZMS  mesh                ParseZMS
//	ZMO  motion              ParseZMO
//	ZSC  scene catalog       ParseZSC
//	HIM  heightmap           ParseHIM
//	TIL  tile brushes        ParseTIL
//	IFO  object placement    ParseIFO
//	CHR  character list      ParseCHR
//
// The ParseXFile variants read the whole file into memory first. A failed
// parse returns only an error wrapping ErrIO, ErrOutOfBounds or ErrFormat,
// never a partially populated model. Parsers share no state and may run
// concurrently on different buffers.
package formats

// Sentinel for optional uint16 indices in ROSE records.
const noIndex = 0xFFFF
