package las

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// VlrHeaderSize is the size of the fixed portion of a variable length record.
const VlrHeaderSize = 54

// EvlrHeaderSize is the size of the fixed portion of an extended VLR.
const EvlrHeaderSize = 60

// Vlr is a LAS variable length record.
type Vlr struct {
	UserID      string
	RecordID    uint16
	Description string
	Data        []byte
}

// TotalSize returns the on-disk size of the record including its header.
func (v Vlr) TotalSize() int {
	return VlrHeaderSize + len(v.Data)
}

// ReadVlr reads one variable length record.
func ReadVlr(r io.Reader) (Vlr, error) {
	var hdr [VlrHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Vlr{}, errors.Wrap(err, "reading vlr header")
	}
	v := Vlr{
		UserID:      trimNul(hdr[2:18]),
		RecordID:    binary.LittleEndian.Uint16(hdr[18:]),
		Description: trimNul(hdr[22:54]),
	}
	length := binary.LittleEndian.Uint16(hdr[20:])
	v.Data = make([]byte, length)
	if _, err := io.ReadFull(r, v.Data); err != nil {
		return Vlr{}, errors.Wrapf(err, "reading %d byte vlr payload", length)
	}
	return v, nil
}

// Write writes the record. Payloads longer than a u16 must go into an EVLR.
func (v Vlr) Write(w io.Writer) error {
	if len(v.Data) > math.MaxUint16 {
		return errors.Errorf("vlr payload of %d bytes exceeds u16 length", len(v.Data))
	}
	var hdr [VlrHeaderSize]byte
	copy(hdr[2:18], v.UserID)
	binary.LittleEndian.PutUint16(hdr[18:], v.RecordID)
	binary.LittleEndian.PutUint16(hdr[20:], uint16(len(v.Data)))
	copy(hdr[22:54], v.Description)
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "writing vlr header")
	}
	_, err := w.Write(v.Data)
	return errors.Wrap(err, "writing vlr payload")
}

// Evlr is a LAS extended variable length record, identical to a Vlr except
// for its 64 bit payload length.
type Evlr struct {
	UserID      string
	RecordID    uint16
	Description string
	Data        []byte
}

// ReadEvlr reads one extended variable length record.
func ReadEvlr(r io.Reader) (Evlr, error) {
	var hdr [EvlrHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Evlr{}, errors.Wrap(err, "reading evlr header")
	}
	v := Evlr{
		UserID:      trimNul(hdr[2:18]),
		RecordID:    binary.LittleEndian.Uint16(hdr[18:]),
		Description: trimNul(hdr[28:60]),
	}
	length := binary.LittleEndian.Uint64(hdr[20:])
	v.Data = make([]byte, length)
	if _, err := io.ReadFull(r, v.Data); err != nil {
		return Evlr{}, errors.Wrapf(err, "reading %d byte evlr payload", length)
	}
	return v, nil
}

// Write writes the record.
func (v Evlr) Write(w io.Writer) error {
	var hdr [EvlrHeaderSize]byte
	copy(hdr[2:18], v.UserID)
	binary.LittleEndian.PutUint16(hdr[18:], v.RecordID)
	binary.LittleEndian.PutUint64(hdr[20:], uint64(len(v.Data)))
	copy(hdr[28:60], v.Description)
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "writing evlr header")
	}
	_, err := w.Write(v.Data)
	return errors.Wrap(err, "writing evlr payload")
}

func trimNul(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
