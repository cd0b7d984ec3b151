// Package wire implements the Handshake P2P wire format: message
// framing, little-endian primitive encoding and the payload types
// exchanged during header sync and name-proof queries.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// BinWriter collects encoding errors instead of returning them from
// every call, the same accumulate-then-check shape as the teacher's
// pkg/io binary writer (NewBufBinWriter/WriteU64LE/Bytes/Error).
type BinWriter struct {
	w   io.Writer
	Err error
}

// NewBinWriter wraps an io.Writer.
func NewBinWriter(w io.Writer) *BinWriter {
	return &BinWriter{w: w}
}

// NewBufBinWriter returns a BinWriter backed by an in-memory buffer.
func NewBufBinWriter() *BinWriter {
	return &BinWriter{w: new(bytes.Buffer)}
}

// Bytes returns the accumulated buffer. Only valid when constructed
// with NewBufBinWriter.
func (w *BinWriter) Bytes() []byte {
	buf, ok := w.w.(*bytes.Buffer)
	if !ok {
		return nil
	}
	return buf.Bytes()
}

// Error returns the first error encountered during writing, if any.
func (w *BinWriter) Error() error {
	return w.Err
}

func (w *BinWriter) write(p []byte) {
	if w.Err != nil {
		return
	}
	_, w.Err = w.w.Write(p)
}

// WriteByte writes a single byte.
func (w *BinWriter) WriteByte(b byte) {
	w.write([]byte{b})
}

// WriteU16LE writes a little-endian uint16.
func (w *BinWriter) WriteU16LE(u uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], u)
	w.write(buf[:])
}

// WriteU32LE writes a little-endian uint32.
func (w *BinWriter) WriteU32LE(u uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], u)
	w.write(buf[:])
}

// WriteU64LE writes a little-endian uint64.
func (w *BinWriter) WriteU64LE(u uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], u)
	w.write(buf[:])
}

// WriteBytes writes a fixed-width byte slice verbatim.
func (w *BinWriter) WriteBytes(b []byte) {
	w.write(b)
}

// WriteVarInt writes u using the wire varint encoding: values below
// 0xFD encode as a single byte; values up to 0xFFFF encode as 0xFD
// followed by a little-endian u16; larger values encode as 0xFE
// followed by a little-endian u32.
func (w *BinWriter) WriteVarInt(u uint32) {
	switch {
	case u < 0xFD:
		w.WriteByte(byte(u))
	case u <= 0xFFFF:
		w.WriteByte(0xFD)
		w.WriteU16LE(uint16(u))
	default:
		w.WriteByte(0xFE)
		w.WriteU32LE(u)
	}
}

// WriteVarBytes writes a varint length prefix followed by the bytes.
func (w *BinWriter) WriteVarBytes(b []byte) {
	w.WriteVarInt(uint32(len(b)))
	w.WriteBytes(b)
}

// BinReader is the decoding counterpart of BinWriter: it tracks the
// first error encountered and every subsequent Read* becomes a no-op,
// the same short-circuiting discipline as the teacher's pkg/io reader.
type BinReader struct {
	r   io.Reader
	Err error
}

// NewBinReader wraps an io.Reader.
func NewBinReader(r io.Reader) *BinReader {
	return &BinReader{r: r}
}

// NewBinReaderFromBuf wraps a byte slice.
func NewBinReaderFromBuf(b []byte) *BinReader {
	return &BinReader{r: bytes.NewReader(b)}
}

func (r *BinReader) read(p []byte) {
	if r.Err != nil {
		return
	}
	_, r.Err = io.ReadFull(r.r, p)
}

// ReadByte reads a single byte.
func (r *BinReader) ReadByte() byte {
	var buf [1]byte
	r.read(buf[:])
	return buf[0]
}

// ReadU16LE reads a little-endian uint16.
func (r *BinReader) ReadU16LE() uint16 {
	var buf [2]byte
	r.read(buf[:])
	return binary.LittleEndian.Uint16(buf[:])
}

// ReadU32LE reads a little-endian uint32.
func (r *BinReader) ReadU32LE() uint32 {
	var buf [4]byte
	r.read(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

// ReadU64LE reads a little-endian uint64.
func (r *BinReader) ReadU64LE() uint64 {
	var buf [8]byte
	r.read(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// ReadBytes reads exactly len(b) bytes into b.
func (r *BinReader) ReadBytes(b []byte) {
	r.read(b)
}

// ReadVarInt decodes the varint scheme described in WriteVarInt.
func (r *BinReader) ReadVarInt() uint32 {
	prefix := r.ReadByte()
	switch prefix {
	case 0xFD:
		return uint32(r.ReadU16LE())
	case 0xFE:
		return r.ReadU32LE()
	default:
		return uint32(prefix)
	}
}

// ReadVarBytes decodes a varint length prefix followed by that many
// bytes, bounded by max to prevent a hostile peer from forcing an
// unbounded allocation.
func (r *BinReader) ReadVarBytes(max uint32) []byte {
	n := r.ReadVarInt()
	if r.Err != nil {
		return nil
	}
	if n > max {
		r.Err = errors.New("wire: varbytes length exceeds sanity cap")
		return nil
	}
	buf := make([]byte, n)
	r.read(buf)
	return buf
}
