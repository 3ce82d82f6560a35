package kasa

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// This implementation is based on:
// https://www.softscheck.com/en/blog/tp-link-reverse-engineering/

const (
	initialKey byte = 171

	headerSize = 4

	// MaxFrameSize bounds the length prefix we are willing to allocate for.
	// The largest replies (get_sysinfo, get_scaninfo) are a few kilobytes.
	MaxFrameSize = 64 * 1024
)

func encrypt(data []byte) []byte {
	key := initialKey
	out := make([]byte, len(data))

	for i, c := range data {
		a := key ^ c
		key = a
		out[i] = a
	}

	return out
}

func decrypt(data []byte) []byte {
	key := initialKey
	out := make([]byte, len(data))

	for i, c := range data {
		out[i] = key ^ c
		key = c
	}

	return out
}

// Encode obfuscates plaintext and prefixes it with its big endian length.
func Encode(plaintext []byte) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(headerSize + len(plaintext))
	binary.Write(buf, binary.BigEndian, uint32(len(plaintext)))
	buf.Write(encrypt(plaintext))

	return buf.Bytes()
}

// Decode reads exactly one frame from r and returns the plaintext.
func Decode(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, frameReadError("header", err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, &ProtocolError{Reason: fmt.Sprintf("frame length %d exceeds %d", size, MaxFrameSize)}
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, frameReadError("payload", err)
	}

	return decrypt(payload), nil
}

// A stream that ends early is a framing problem, anything else comes from the socket.
func frameReadError(part string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &ProtocolError{Reason: "truncated frame " + part, Err: err}
	}
	return classify("read "+part, err)
}
