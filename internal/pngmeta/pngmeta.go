// Package pngmeta reads and writes the "parameters" text chunk that
// Stable Diffusion front ends store generation infotext in.
package pngmeta

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"golang.org/x/text/encoding/charmap"
)

// Keyword is the text chunk keyword holding generation parameters.
const Keyword = "parameters"

// maxTextChunk bounds the size of a text chunk read into memory.
const maxTextChunk = 16 << 20

var signature = []byte("\x89PNG\r\n\x1a\n")

var (
	// ErrNotPNG is returned when the input does not start with the PNG signature.
	ErrNotPNG = errors.New("not a PNG file")

	// ErrNoParameters is returned when the image has no parameters chunk.
	ErrNoParameters = errors.New("no parameters text chunk")
)

type chunk struct {
	typ  string
	data []byte
}

func isTextChunk(typ string) bool {
	return typ == "tEXt" || typ == "zTXt" || typ == "iTXt"
}

// ReadFile reads the parameters text of the PNG at path.
func ReadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	text, err := ReadParameters(f)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}

// ReadParameters scans a PNG stream and returns the text of the first
// tEXt, zTXt or iTXt chunk whose keyword is "parameters". Image data chunks
// are skipped without being buffered.
func ReadParameters(r io.Reader) (string, error) {
	if err := readSignature(r); err != nil {
		return "", err
	}

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return "", fmt.Errorf("reading chunk header: %w", err)
		}
		length := binary.BigEndian.Uint32(hdr[:4])
		typ := string(hdr[4:8])

		if typ == "IEND" {
			return "", ErrNoParameters
		}
		if !isTextChunk(typ) {
			if _, err := io.CopyN(io.Discard, r, int64(length)+4); err != nil {
				return "", fmt.Errorf("skipping %s chunk: %w", typ, err)
			}
			continue
		}

		c, err := readChunkBody(r, typ, length)
		if err != nil {
			return "", err
		}
		keyword, text, err := decodeText(c)
		if err != nil {
			return "", err
		}
		if keyword == Keyword {
			return text, nil
		}
	}
}

func readSignature(r io.Reader) error {
	var sig [8]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrNotPNG
		}
		return fmt.Errorf("reading signature: %w", err)
	}
	if !bytes.Equal(sig[:], signature) {
		return ErrNotPNG
	}
	return nil
}

func readChunkBody(r io.Reader, typ string, length uint32) (chunk, error) {
	if length > maxTextChunk {
		return chunk{}, fmt.Errorf("%s chunk too large: %d bytes", typ, length)
	}
	buf := make([]byte, int(length)+4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return chunk{}, fmt.Errorf("reading %s chunk: %w", typ, err)
	}
	data, sum := buf[:length], binary.BigEndian.Uint32(buf[length:])
	if crc(typ, data) != sum {
		return chunk{}, fmt.Errorf("%s chunk: checksum mismatch", typ)
	}
	return chunk{typ: typ, data: data}, nil
}

func crc(typ string, data []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write([]byte(typ))
	h.Write(data)
	return h.Sum32()
}

// decodeText returns the keyword and text of a tEXt, zTXt or iTXt chunk.
func decodeText(c chunk) (string, string, error) {
	keyword, rest, ok := bytes.Cut(c.data, []byte{0})
	if !ok {
		return "", "", fmt.Errorf("%s chunk: missing keyword separator", c.typ)
	}

	switch c.typ {
	case "tEXt":
		text, err := charmap.ISO8859_1.NewDecoder().Bytes(rest)
		if err != nil {
			return "", "", fmt.Errorf("tEXt chunk: %w", err)
		}
		return string(keyword), string(text), nil

	case "zTXt":
		if len(rest) < 1 {
			return "", "", errors.New("zTXt chunk: missing compression method")
		}
		raw, err := inflate(rest[1:])
		if err != nil {
			return "", "", fmt.Errorf("zTXt chunk: %w", err)
		}
		text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", "", fmt.Errorf("zTXt chunk: %w", err)
		}
		return string(keyword), string(text), nil

	default: // iTXt
		if len(rest) < 2 {
			return "", "", errors.New("iTXt chunk: truncated header")
		}
		compressed := rest[0] == 1
		rest = rest[2:]
		// Language tag and translated keyword precede the text.
		for i := 0; i < 2; i++ {
			_, after, ok := bytes.Cut(rest, []byte{0})
			if !ok {
				return "", "", errors.New("iTXt chunk: truncated header")
			}
			rest = after
		}
		if compressed {
			raw, err := inflate(rest)
			if err != nil {
				return "", "", fmt.Errorf("iTXt chunk: %w", err)
			}
			rest = raw
		}
		return string(keyword), string(rest), nil
	}
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxTextChunk))
}
