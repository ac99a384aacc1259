package pngmeta

import (
	"bytes"
	"compress/zlib"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

const infotext = "masterpiece, (red hair:1.2)\nNegative prompt: lowres\nSteps: 20, Sampler: Euler a, CFG scale: 7"

// blankPNG returns an encoded 2x2 image without text chunks.
func blankPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// withChunk inserts c right after the IHDR chunk of a PNG.
func withChunk(t *testing.T, src []byte, c chunk) []byte {
	t.Helper()
	const ihdrEnd = 8 + 8 + 13 + 4
	var buf bytes.Buffer
	buf.Write(src[:ihdrEnd])
	if err := writeChunk(&buf, c); err != nil {
		t.Fatalf("writeChunk() error = %v", err)
	}
	buf.Write(src[ihdrEnd:])
	return buf.Bytes()
}

func deflate(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("zlib write error = %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close error = %v", err)
	}
	return buf.Bytes()
}

func TestReadParameters(t *testing.T) {
	base := blankPNG(t)

	tests := []struct {
		name  string
		chunk chunk
		want  string
	}{
		{
			name:  "tEXt",
			chunk: chunk{typ: "tEXt", data: []byte("parameters\x00" + infotext)},
			want:  infotext,
		},
		{
			name:  "tEXt latin-1",
			chunk: chunk{typ: "tEXt", data: []byte("parameters\x00caf\xe9")},
			want:  "café",
		},
		{
			name:  "zTXt",
			chunk: chunk{typ: "zTXt", data: append([]byte("parameters\x00\x00"), deflate(t, infotext)...)},
			want:  infotext,
		},
		{
			name:  "iTXt uncompressed",
			chunk: chunk{typ: "iTXt", data: []byte("parameters\x00\x00\x00\x00\x00猫耳, smile")},
			want:  "猫耳, smile",
		},
		{
			name:  "iTXt compressed",
			chunk: chunk{typ: "iTXt", data: append([]byte("parameters\x00\x01\x00en\x00\x00"), deflate(t, "猫耳")...)},
			want:  "猫耳",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := withChunk(t, base, tt.chunk)
			got, err := ReadParameters(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("ReadParameters() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadParameters() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadParameters_SkipsOtherKeywords(t *testing.T) {
	data := withChunk(t, blankPNG(t), chunk{typ: "tEXt", data: []byte("Software\x00something")})
	data = withChunk(t, data, chunk{typ: "tEXt", data: []byte("parameters\x00a, b")})

	got, err := ReadParameters(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadParameters() error = %v", err)
	}
	if got != "a, b" {
		t.Errorf("ReadParameters() = %q, want %q", got, "a, b")
	}
}

func TestReadParameters_Errors(t *testing.T) {
	if _, err := ReadParameters(bytes.NewReader(blankPNG(t))); !errors.Is(err, ErrNoParameters) {
		t.Errorf("plain PNG: error = %v, want ErrNoParameters", err)
	}
	if _, err := ReadParameters(bytes.NewReader([]byte("GIF89a not a png"))); !errors.Is(err, ErrNotPNG) {
		t.Errorf("GIF: error = %v, want ErrNotPNG", err)
	}
	if _, err := ReadParameters(bytes.NewReader(nil)); !errors.Is(err, ErrNotPNG) {
		t.Errorf("empty: error = %v, want ErrNotPNG", err)
	}

	corrupt := withChunk(t, blankPNG(t), chunk{typ: "tEXt", data: []byte("parameters\x00abc")})
	corrupt[8+25+8] ^= 0xff // first data byte of the inserted chunk
	if _, err := ReadParameters(bytes.NewReader(corrupt)); err == nil {
		t.Error("corrupt chunk: expected checksum error")
	}
}

func TestWriteParameters_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"latin-1 text", infotext},
		{"unicode text", "猫耳, (青い目:1.2)\nSteps: 20, Sampler: Euler a, CFG scale: 7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := withChunk(t, blankPNG(t), chunk{typ: "tEXt", data: []byte("parameters\x00old prompt")})

			var out bytes.Buffer
			if err := WriteParameters(&out, bytes.NewReader(src), tt.text); err != nil {
				t.Fatalf("WriteParameters() error = %v", err)
			}

			got, err := ReadParameters(bytes.NewReader(out.Bytes()))
			if err != nil {
				t.Fatalf("ReadParameters() error = %v", err)
			}
			if got != tt.text {
				t.Errorf("round trip = %q, want %q", got, tt.text)
			}

			img, err := png.Decode(bytes.NewReader(out.Bytes()))
			if err != nil {
				t.Fatalf("output is not a valid PNG: %v", err)
			}
			if img.Bounds().Dx() != 2 {
				t.Errorf("image width = %d, want 2", img.Bounds().Dx())
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	dst := filepath.Join(dir, "out.png")
	if err := os.WriteFile(src, blankPNG(t), 0644); err != nil {
		t.Fatalf("writing source: %v", err)
	}

	if err := WriteFile(dst, src, "a, b"); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got != "a, b" {
		t.Errorf("ReadFile() = %q, want %q", got, "a, b")
	}

	if _, err := ReadFile(src); !errors.Is(err, ErrNoParameters) {
		t.Errorf("source modified: error = %v, want ErrNoParameters", err)
	}
}
