// Package textenc wraps golang.org/x/text encodings for streaming use: a
// decoding reader for the source file and an encoding writer for each output
// chunk. Both sides are built on transform.Reader/transform.Writer, which
// carry partial multi-byte sequences across Read/Write calls, so characters
// are never split at buffer boundaries.
package textenc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Auto is the pseudo-label that requests encoding detection.
const Auto = "auto"

// IsAuto reports whether name requests detection. Case and surrounding
// space are ignored.
func IsAuto(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), Auto)
}

// sniffSize is how much of the source head is handed to the detector.
const sniffSize = 64 * 1024

// ErrMalformedInput is returned by a strict decoder when the source holds
// byte sequences that are not valid in the declared encoding.
var ErrMalformedInput = errors.New("textenc: malformed input for source encoding")

// Lookup resolves a WHATWG/IANA label such as "Shift_JIS", "sjis",
// "EUC-JP" or "utf-8".
func Lookup(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("textenc: empty encoding name")
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("textenc: unsupported encoding %q: %w", name, err)
	}
	return enc, nil
}

// Name returns the canonical label of enc, or "unknown".
func Name(enc encoding.Encoding) string {
	if n, err := htmlindex.Name(enc); err == nil {
		return n
	}
	return "unknown"
}

// Detect guesses the encoding of head. An empty head is reported as UTF-8.
func Detect(head []byte) (encoding.Encoding, error) {
	if len(head) == 0 {
		return unicode.UTF8, nil
	}
	res, err := chardet.NewTextDetector().DetectBest(head)
	if err != nil {
		return nil, fmt.Errorf("textenc: detect: %w", err)
	}
	return Lookup(res.Charset)
}

// Sniff detects the encoding from the buffered head of br without consuming
// any bytes.
func Sniff(br *bufio.Reader) (encoding.Encoding, error) {
	head, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("textenc: peek: %w", err)
	}
	return Detect(head)
}

// NewSniffReader returns a reader large enough for Sniff to see sniffSize
// bytes.
func NewSniffReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, sniffSize)
}

// NewDecoder returns a reader producing UTF-8 from r, which holds text in
// enc. When strict, any sequence the decoder could not map fails the read
// with ErrMalformedInput.
//
// A UTF-8 source is validated as is, so a literal U+FFFD in it is kept. For
// every other encoding U+FFFD in the decoded text counts as malformed.
func NewDecoder(r io.Reader, enc encoding.Encoding, strict bool) io.Reader {
	if strict && Name(enc) == "utf-8" {
		return transform.NewReader(r, rejectReplacement{keepReplacement: true})
	}
	var t transform.Transformer = enc.NewDecoder()
	if strict {
		t = transform.Chain(t, rejectReplacement{})
	}
	return transform.NewReader(r, t)
}

// NewEncoder returns a writer that encodes UTF-8 written to it into enc on
// w. Runes enc cannot represent are replaced with the encoding's substitute
// byte. Close flushes pending bytes but does not close w.
func NewEncoder(w io.Writer, enc encoding.Encoding) io.WriteCloser {
	return transform.NewWriter(w, encoding.ReplaceUnsupported(enc.NewEncoder()))
}

// rejectReplacement passes valid UTF-8 through and fails on invalid bytes
// and, unless keepReplacement is set, on U+FFFD. Placed after a decoder it
// turns silent replacement into an error: legacy double-byte encodings have
// no mapping for U+FFFD, so its presence means the decoder met bytes it
// could not decode.
type rejectReplacement struct {
	transform.NopResetter
	keepReplacement bool
}

func (t rejectReplacement) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if c := src[nSrc]; c < utf8.RuneSelf {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = c
			nDst++
			nSrc++
			continue
		}
		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError {
			if size == 1 && !atEOF && !utf8.FullRune(src[nSrc:]) {
				return nDst, nSrc, transform.ErrShortSrc
			}
			if size == 1 || !t.keepReplacement {
				return nDst, nSrc, ErrMalformedInput
			}
		}
		if nDst+size > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], src[nSrc:nSrc+size])
		nSrc += size
	}
	return nDst, nSrc, nil
}
