package pngmeta

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/charmap"
)

// WriteParameters copies the PNG in r to w, replacing any parameters text
// chunk with one holding text. The new chunk is placed just before IEND.
// Text that Latin-1 can represent goes into a tEXt chunk, anything else into
// an uncompressed iTXt chunk.
func WriteParameters(w io.Writer, r io.Reader, text string) error {
	if err := readSignature(r); err != nil {
		return err
	}
	if _, err := w.Write(signature); err != nil {
		return fmt.Errorf("writing signature: %w", err)
	}

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return fmt.Errorf("reading chunk header: %w", err)
		}
		length := binary.BigEndian.Uint32(hdr[:4])
		typ := string(hdr[4:8])

		switch {
		case typ == "IEND":
			if err := writeChunk(w, parametersChunk(text)); err != nil {
				return err
			}
			if _, err := w.Write(hdr[:]); err != nil {
				return fmt.Errorf("writing IEND: %w", err)
			}
			if _, err := io.CopyN(w, r, 4); err != nil {
				return fmt.Errorf("copying IEND: %w", err)
			}
			return nil

		case isTextChunk(typ):
			c, err := readChunkBody(r, typ, length)
			if err != nil {
				return err
			}
			if keyword, _, err := decodeText(c); err == nil && keyword == Keyword {
				continue
			}
			if err := writeChunk(w, c); err != nil {
				return err
			}

		default:
			if _, err := w.Write(hdr[:]); err != nil {
				return fmt.Errorf("writing %s header: %w", typ, err)
			}
			if _, err := io.CopyN(w, r, int64(length)+4); err != nil {
				return fmt.Errorf("copying %s chunk: %w", typ, err)
			}
		}
	}
}

// WriteFile writes a copy of the PNG at src to dst with text as its
// parameters chunk. dst is written through a temporary file and renamed.
func WriteFile(dst, src, text string) (retErr error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".promptedit-*.png")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := WriteParameters(tmp, in, text); err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func parametersChunk(text string) chunk {
	if latin1, err := charmap.ISO8859_1.NewEncoder().String(text); err == nil {
		data := append([]byte(Keyword+"\x00"), latin1...)
		return chunk{typ: "tEXt", data: data}
	}
	// keyword, compression flag, compression method, empty language tag and
	// translated keyword, then UTF-8 text.
	data := append([]byte(Keyword+"\x00\x00\x00\x00\x00"), text...)
	return chunk{typ: "iTXt", data: data}
}

func writeChunk(w io.Writer, c chunk) error {
	if len(c.data) > maxTextChunk {
		return errors.New("text chunk too large")
	}
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(len(c.data)))
	copy(hdr[4:], c.typ)

	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc(c.typ, c.data))

	for _, b := range [][]byte{hdr[:], c.data, sum[:]} {
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("writing %s chunk: %w", c.typ, err)
		}
	}
	return nil
}
