package annotation

import (
	"encoding/hex"
	"io"
	"strconv"

	"github.com/zeebo/blake3"
)

// Digest fingerprints the span set: type, offsets, origin and attributes of
// every span in store order. Two stores built by the same deterministic
// pipeline over the same text have equal digests.
func (s *Store) Digest() string {
	h := blake3.New()
	for span := range s.All() {
		writeField(h, string(span.Type))
		writeField(h, strconv.Itoa(span.Begin))
		writeField(h, strconv.Itoa(span.End))
		writeField(h, span.Origin)
		for _, key := range span.Attributes.Keys() {
			writeField(h, key+"="+span.Attributes[key])
		}
		_, _ = io.WriteString(h, "\x1e")
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(w io.Writer, value string) {
	_, _ = io.WriteString(w, strconv.Itoa(len(value)))
	_, _ = io.WriteString(w, ":")
	_, _ = io.WriteString(w, value)
}
