// Package savestate holds the binary encoding used to persist emulator state.
//
// A record starts with a 4 byte magic and a little endian uint16 version.
// Components then append their fields in a fixed order. Readers reject any
// version other than the one they were built for.
package savestate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Version is the only record layout this package reads and writes.
const Version uint16 = 1

var magic = [4]byte{'D', 'M', 'G', 'S'}

var (
	// ErrBadMagic is returned when the record does not start with the expected magic.
	ErrBadMagic = errors.New("savestate: not a save state record")
	// ErrUnsupportedVersion is returned for records written with an unknown layout.
	ErrUnsupportedVersion = errors.New("savestate: unsupported version")
	// ErrCorrupt is returned when a field holds a value no writer could have produced.
	ErrCorrupt = errors.New("savestate: corrupt record")
)

// Writer appends fields to a record. The first write error sticks and is
// reported by Err; later writes are no-ops.
type Writer struct {
	w   io.Writer
	buf [8]byte
	err error
}

// NewWriter writes the record header and returns a Writer for the fields.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w}
	sw.Bytes(magic[:])
	sw.Uint16(Version)
	return sw
}

// Err returns the first error encountered while writing.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

func (w *Writer) Uint8(v uint8) {
	w.buf[0] = v
	w.write(w.buf[:1])
}

func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
		return
	}
	w.Uint8(0)
}

func (w *Writer) Uint16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	w.write(w.buf[:2])
}

func (w *Writer) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.write(w.buf[:4])
}

func (w *Writer) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	w.write(w.buf[:8])
}

// Int stores a signed counter as 64 bits.
func (w *Writer) Int(v int) {
	w.Uint64(uint64(int64(v)))
}

// Bytes writes b verbatim; the reader must know the length.
func (w *Writer) Bytes(b []byte) {
	w.write(b)
}

// Blob writes a length prefixed byte slice.
func (w *Writer) Blob(b []byte) {
	w.Uint32(uint32(len(b)))
	w.Bytes(b)
}

// Reader consumes fields from a record in the order they were written.
type Reader struct {
	r   io.Reader
	buf [8]byte
	err error
}

// NewReader validates the record header. It fails with ErrBadMagic or
// ErrUnsupportedVersion before any component state is touched.
func NewReader(r io.Reader) (*Reader, error) {
	sr := &Reader{r: r}
	var m [4]byte
	sr.Bytes(m[:])
	version := sr.Uint16()
	if sr.err != nil {
		return nil, fmt.Errorf("savestate: reading header: %w", sr.err)
	}
	if m != magic {
		return nil, ErrBadMagic
	}
	if version != Version {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrUnsupportedVersion, version, Version)
	}
	return sr, nil
}

// Err returns the first error encountered while reading.
func (r *Reader) Err() error {
	return r.err
}

// Fail records err unless an earlier error is already pending. Components use it
// to report semantic problems (a field out of range) through the same channel.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) read(b []byte) {
	if r.err == nil {
		_, r.err = io.ReadFull(r.r, b)
		if r.err == nil {
			return
		}
	}
	clear(b)
}

func (r *Reader) Uint8() uint8 {
	r.read(r.buf[:1])
	return r.buf[0]
}

func (r *Reader) Bool() bool {
	return r.Uint8() != 0
}

func (r *Reader) Uint16() uint16 {
	r.read(r.buf[:2])
	return binary.LittleEndian.Uint16(r.buf[:2])
}

func (r *Reader) Uint32() uint32 {
	r.read(r.buf[:4])
	return binary.LittleEndian.Uint32(r.buf[:4])
}

func (r *Reader) Uint64() uint64 {
	r.read(r.buf[:8])
	return binary.LittleEndian.Uint64(r.buf[:8])
}

func (r *Reader) Int() int {
	return int(int64(r.Uint64()))
}

// Bytes fills b completely.
func (r *Reader) Bytes(b []byte) {
	r.read(b)
}

// Blob reads a length prefixed slice into b, which must already have the
// expected length. A different stored length is reported as ErrCorrupt.
func (r *Reader) Blob(b []byte) {
	n := r.Uint32()
	if r.err != nil {
		return
	}
	if int(n) != len(b) {
		r.Fail(fmt.Errorf("%w: blob of %d bytes, want %d", ErrCorrupt, n, len(b)))
		return
	}
	r.Bytes(b)
}
