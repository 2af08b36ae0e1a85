package formats

import (
	"bytes"
	"encoding/binary"
)

// writeLE appends each value to buf in little-endian order.
func writeLE(buf *bytes.Buffer, values ...any) {
	for _, v := range values {
		binary.Write(buf, binary.LittleEndian, v)
	}
}

// writeCString appends a null-terminated string.
func writeCString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
}

func writeVec3(buf *bytes.Buffer, x, y, z float32) {
	writeLE(buf, x, y, z)
}
