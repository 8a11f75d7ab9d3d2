// Package codec implements the library's preservation codec: embeddings
// persist as base64 of their little-endian float32 bytes, and text payloads
// persist gzip-compressed above a size threshold with auto-detection by the
// gzip magic bytes (0x1F 0x8B). The vector layout wraps the raw bytes in
// base64 so it round-trips cleanly through a JSON document.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrInvalidVector is returned when a vector cannot be encoded or decoded.
var ErrInvalidVector = errors.New("codec: invalid vector")

// gzipMagic is the two leading bytes of every gzip stream.
var gzipMagic = []byte{0x1F, 0x8B}

// EncodeVector returns the base64 encoding of vec's contiguous little-endian float32 bytes.
func EncodeVector(vec []float32) (string, error) {
	if vec == nil {
		return "", ErrInvalidVector
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// DecodeVector reverses EncodeVector.
func DecodeVector(b64 string) ([]float32, error) {
	if b64 == "" {
		return nil, ErrInvalidVector
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, ErrInvalidVector
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}

// CompressThreshold is the text length above which CompressText gzip-encodes the payload.
const CompressThreshold = 512

// CompressText gzip-compresses text when it exceeds CompressThreshold, returning the raw
// bytes unchanged otherwise; small texts stay plain since gzip overhead would outweigh any gain.
func CompressText(text string) ([]byte, bool, error) {
	if len(text) <= CompressThreshold {
		return []byte(text), false, nil
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(text)); err != nil {
		return nil, false, err
	}
	if err := w.Close(); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

// IsGzip reports whether data begins with the gzip magic bytes.
func IsGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == gzipMagic[0] && data[1] == gzipMagic[1]
}

// DecompressText auto-detects gzip by magic bytes and decompresses, otherwise returns the
// bytes as plain text.
func DecompressText(data []byte) (string, error) {
	if !IsGzip(data) {
		return string(data), nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
