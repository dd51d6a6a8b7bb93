package irc

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// lineFramer buffers inbound bytes and yields complete CRLF-
// terminated lines, NFC-normalized, with the terminator stripped.
// Its buffer is private to one Session for its lifetime.
type lineFramer struct {
	buf strings.Builder
}

// feed buffers chunk and returns the complete lines it produces, in
// order. Each complete line is decoded as UTF-8 (replacing malformed
// sequences with U+FFFD rather than failing), so a multi-byte character
// split across chunks survives intact. Any trailing partial line is
// retained for the next call. Empty lines (a bare CRLF) are discarded.
func (f *lineFramer) feed(chunk []byte) []string {
	f.buf.Write(chunk)

	data := f.buf.String()
	var lines []string

	for {
		idx := strings.Index(data, "\r\n")
		if idx == -1 {
			break
		}
		if idx > 0 {
			lines = append(lines, norm.NFC.String(strings.ToValidUTF8(data[:idx], "�")))
		}
		data = data[idx+2:]
	}

	f.buf.Reset()
	f.buf.WriteString(data)

	return lines
}
