package fileset

import "bytes"

// Concat joins sources in order, separated by a newline. A source missing a
// trailing newline cannot run into the first line of the next.
func Concat(parts ...[]byte) []byte {
	var buf bytes.Buffer
	for i, p := range parts {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(p)
	}
	return buf.Bytes()
}
