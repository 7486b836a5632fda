// Package wire implements the length-prefixed, zero-padded framing used by
// the Nix Archive format: every byte string on the wire is a little-endian
// uint64 length, the raw bytes, and zero padding out to the next multiple of
// 8 bytes.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// PadLen is the alignment every framed byte string is padded to.
const PadLen = 8

var encoding = binary.LittleEndian

// ErrBadPadding is returned when padding bytes following a framed value are
// not all zero.
var ErrBadPadding = fmt.Errorf("wire: bad padding")

// ErrTooLarge is returned by ReadBytes/ReadString when a frame's advertised
// length exceeds the caller-supplied ceiling.
var ErrTooLarge = fmt.Errorf("wire: frame exceeds size limit")

// WriteUint64 writes v as a raw little-endian 8-byte value, unpadded.
func WriteUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	encoding.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])

	return err
}

// ReadUint64 reads a raw little-endian 8-byte value, unpadded.
func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}

	return encoding.Uint64(buf[:]), nil
}

// WriteBool writes a boolean as the wire's canonical 0/1 uint64.
func WriteBool(w io.Writer, v bool) error {
	if v {
		return WriteUint64(w, 1)
	}

	return WriteUint64(w, 0)
}

// ReadBool reads a boolean encoded as a uint64, where any non-zero value is
// true.
func ReadBool(r io.Reader) (bool, error) {
	v, err := ReadUint64(r)
	if err != nil {
		return false, err
	}

	return v != 0, nil
}

// WriteBytes writes a framed byte string: length prefix, payload, then zero
// padding out to the next 8-byte boundary.
func WriteBytes(w io.Writer, b []byte) error {
	if err := WriteUint64(w, uint64(len(b))); err != nil {
		return err
	}

	if _, err := w.Write(b); err != nil {
		return err
	}

	return writePadding(w, uint64(len(b)))
}

// WriteString is WriteBytes over the string's raw bytes.
func WriteString(w io.Writer, s string) error {
	return WriteBytes(w, []byte(s))
}

// CopyPadded streams exactly n bytes from r to w as a framed byte string,
// without buffering the payload in memory, then writes the trailing
// padding. It fails if r yields fewer than n bytes before EOF.
func CopyPadded(w io.Writer, r io.Reader, n uint64) error {
	if err := WriteUint64(w, n); err != nil {
		return err
	}

	copied, err := io.CopyN(w, r, int64(n))
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("wire: short read streaming %d bytes (got %d)", n, copied)
		}

		return err
	}

	return writePadding(w, n)
}

// ReadBytes reads a framed byte string. If max is non-zero and the
// advertised length exceeds it, ErrTooLarge is returned without reading the
// payload. Padding bytes are verified to be all zero; any non-zero pad byte
// yields ErrBadPadding.
func ReadBytes(r io.Reader, max uint64) ([]byte, error) {
	n, err := ReadUint64(r)
	if err != nil {
		return nil, err
	}

	if max != 0 && n > max {
		return nil, ErrTooLarge
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	if err := readPadding(r, n); err != nil {
		return nil, err
	}

	return buf, nil
}

// ErrInvalidUTF8 is returned by ReadString when the framed payload is not
// valid UTF-8.
var ErrInvalidUTF8 = fmt.Errorf("wire: invalid utf-8")

// ReadString is ReadBytes followed by a UTF-8 validity check.
func ReadString(r io.Reader, max uint64) (string, error) {
	b, err := ReadBytes(r, max)
	if err != nil {
		return "", err
	}

	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}

	return string(b), nil
}

func writePadding(w io.Writer, contentLen uint64) error {
	n := padLen(contentLen)
	if n == 0 {
		return nil
	}

	var pad [PadLen]byte

	_, err := w.Write(pad[:n])

	return err
}

func readPadding(r io.Reader, contentLen uint64) error {
	n := padLen(contentLen)
	if n == 0 {
		return nil
	}

	var pad [PadLen]byte
	if _, err := io.ReadFull(r, pad[:n]); err != nil {
		return err
	}

	for _, b := range pad[:n] {
		if b != 0 {
			return ErrBadPadding
		}
	}

	return nil
}

// padLen returns the number of padding bytes needed to align contentLen to
// the next PadLen-byte boundary.
func padLen(contentLen uint64) uint64 {
	return (PadLen - (contentLen % PadLen)) % PadLen
}
