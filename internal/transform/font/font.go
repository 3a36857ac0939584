// Package font converts TrueType/OpenType fonts between the sfnt container and
// the WOFF and WOFF2 web font wrappers.
package font

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"golang.org/x/image/font/sfnt"
)

// ErrUnsupported marks inputs that are not a font container this package reads.
var ErrUnsupported = errors.New("unsupported font format")

const (
	flavorTrueType = 0x00010000
	flavorOpenType = 0x4F54544F // OTTO
	flavorApple    = 0x74727565 // true

	sigWOFF  = 0x774F4646 // wOFF
	sigWOFF2 = 0x774F4632 // wOF2

	checksumMagic = 0xB1B0AFBA
)

// Table is one sfnt table.
type Table struct {
	Tag      string
	Data     []byte
	checksum uint32
}

// Font is a decoded font: its sfnt flavor and its tables.
type Font struct {
	Flavor uint32
	Tables []Table
}

// SFNTExt is the file extension matching the font's outlines.
func (f *Font) SFNTExt() string {
	if f.Flavor == flavorOpenType {
		return ".otf"
	}
	return ".ttf"
}

// Table returns the table with the given tag.
func (f *Font) Table(tag string) (Table, bool) {
	for _, t := range f.Tables {
		if t.Tag == tag {
			return t, true
		}
	}
	return Table{}, false
}

// Decode reads a raw sfnt (TTF/OTF) or WOFF font and checks that the result
// parses as a font.
func Decode(data []byte) (*Font, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: %d bytes", ErrUnsupported, len(data))
	}

	var (
		f   *Font
		err error
	)
	switch sig := binary.BigEndian.Uint32(data); sig {
	case flavorTrueType, flavorOpenType, flavorApple:
		f, err = decodeSFNT(data)
	case sigWOFF:
		f, err = decodeWOFF(data)
	case sigWOFF2:
		return nil, fmt.Errorf("%w: woff2 input", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: signature %#08x", ErrUnsupported, sig)
	}
	if err != nil {
		return nil, err
	}

	out, err := EncodeSFNT(f)
	if err != nil {
		return nil, err
	}
	if _, err := sfnt.Parse(out); err != nil {
		return nil, fmt.Errorf("invalid font: %w", err)
	}
	return f, nil
}

func decodeSFNT(data []byte) (*Font, error) {
	n := int(binary.BigEndian.Uint16(data[4:]))
	if len(data) < 12+16*n {
		return nil, errors.New("truncated sfnt table directory")
	}
	f := &Font{Flavor: binary.BigEndian.Uint32(data), Tables: make([]Table, 0, n)}
	for i := 0; i < n; i++ {
		rec := data[12+16*i:]
		off := binary.BigEndian.Uint32(rec[8:])
		length := binary.BigEndian.Uint32(rec[12:])
		if uint64(off)+uint64(length) > uint64(len(data)) {
			return nil, fmt.Errorf("table %q out of bounds", rec[:4])
		}
		f.Tables = append(f.Tables, Table{
			Tag:      string(rec[:4]),
			Data:     data[off : off+length],
			checksum: binary.BigEndian.Uint32(rec[4:]),
		})
	}
	return f, nil
}

func decodeWOFF(data []byte) (*Font, error) {
	if len(data) < 44 {
		return nil, errors.New("truncated woff header")
	}
	n := int(binary.BigEndian.Uint16(data[12:]))
	if len(data) < 44+20*n {
		return nil, errors.New("truncated woff table directory")
	}
	f := &Font{Flavor: binary.BigEndian.Uint32(data[4:]), Tables: make([]Table, 0, n)}
	for i := 0; i < n; i++ {
		rec := data[44+20*i:]
		tag := string(rec[:4])
		off := binary.BigEndian.Uint32(rec[4:])
		compLen := binary.BigEndian.Uint32(rec[8:])
		origLen := binary.BigEndian.Uint32(rec[12:])
		if uint64(off)+uint64(compLen) > uint64(len(data)) {
			return nil, fmt.Errorf("table %q out of bounds", tag)
		}
		raw := data[off : off+compLen]
		if compLen < origLen {
			zr, err := zlib.NewReader(bytes.NewReader(raw))
			if err != nil {
				return nil, fmt.Errorf("table %q: %w", tag, err)
			}
			raw, err = io.ReadAll(io.LimitReader(zr, int64(origLen)+1))
			_ = zr.Close()
			if err != nil {
				return nil, fmt.Errorf("table %q: %w", tag, err)
			}
		}
		if uint32(len(raw)) != origLen {
			return nil, fmt.Errorf("table %q: length %d, want %d", tag, len(raw), origLen)
		}
		f.Tables = append(f.Tables, Table{Tag: tag, Data: raw, checksum: binary.BigEndian.Uint32(rec[16:])})
	}
	return f, nil
}

// EncodeSFNT writes the font as a raw TTF/OTF with fresh table checksums and
// head.checkSumAdjustment.
func EncodeSFNT(f *Font) ([]byte, error) {
	tables := sortedTables(f)
	n := len(tables)
	if n == 0 {
		return nil, errors.New("font has no tables")
	}

	es := 0
	for 1<<(es+1) <= n {
		es++
	}
	searchRange := (1 << es) * 16

	size := 12 + 16*n
	for _, t := range tables {
		size += pad4(len(t.Data))
	}
	out := make([]byte, size)
	binary.BigEndian.PutUint32(out, f.Flavor)
	binary.BigEndian.PutUint16(out[4:], uint16(n))
	binary.BigEndian.PutUint16(out[6:], uint16(searchRange))
	binary.BigEndian.PutUint16(out[8:], uint16(es))
	binary.BigEndian.PutUint16(out[10:], uint16(n*16-searchRange))

	headOff := -1
	off := 12 + 16*n
	for i, t := range tables {
		copy(out[off:], t.Data)
		if t.Tag == "head" {
			if len(t.Data) < 12 {
				return nil, errors.New("head table too short")
			}
			headOff = off
			binary.BigEndian.PutUint32(out[off+8:], 0)
		}
		rec := out[12+16*i:]
		copy(rec[:4], t.Tag)
		binary.BigEndian.PutUint32(rec[4:], checksum(out[off:off+pad4(len(t.Data))]))
		binary.BigEndian.PutUint32(rec[8:], uint32(off))
		binary.BigEndian.PutUint32(rec[12:], uint32(len(t.Data)))
		off += pad4(len(t.Data))
	}
	if headOff >= 0 {
		binary.BigEndian.PutUint32(out[headOff+8:], checksumMagic-checksum(out))
	}
	return out, nil
}

// EncodeWOFF wraps the font as WOFF 1.0, zlib-compressing each table that
// gets smaller.
func EncodeWOFF(f *Font) ([]byte, error) {
	raw, err := EncodeSFNT(f)
	if err != nil {
		return nil, err
	}
	sf, err := decodeSFNT(raw)
	if err != nil {
		return nil, err
	}
	n := len(sf.Tables)

	var body bytes.Buffer
	dir := make([]byte, 20*n)
	off := 44 + 20*n
	for i, t := range sf.Tables {
		data := t.Data
		var z bytes.Buffer
		zw, _ := zlib.NewWriterLevel(&z, zlib.BestCompression)
		if _, err := zw.Write(t.Data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		if z.Len() < len(t.Data) {
			data = z.Bytes()
		}

		rec := dir[20*i:]
		copy(rec[:4], t.Tag)
		binary.BigEndian.PutUint32(rec[4:], uint32(off))
		binary.BigEndian.PutUint32(rec[8:], uint32(len(data)))
		binary.BigEndian.PutUint32(rec[12:], uint32(len(t.Data)))
		binary.BigEndian.PutUint32(rec[16:], t.checksum)

		body.Write(data)
		body.Write(make([]byte, pad4(len(data))-len(data)))
		off += pad4(len(data))
	}

	hdr := make([]byte, 44)
	binary.BigEndian.PutUint32(hdr, sigWOFF)
	binary.BigEndian.PutUint32(hdr[4:], sf.Flavor)
	binary.BigEndian.PutUint32(hdr[8:], uint32(off))
	binary.BigEndian.PutUint16(hdr[12:], uint16(n))
	binary.BigEndian.PutUint32(hdr[16:], uint32(len(raw)))
	binary.BigEndian.PutUint16(hdr[20:], 1)

	out := make([]byte, 0, off)
	out = append(out, hdr...)
	out = append(out, dir...)
	return append(out, body.Bytes()...), nil
}

func sortedTables(f *Font) []Table {
	tables := make([]Table, len(f.Tables))
	copy(tables, f.Tables)
	sort.Slice(tables, func(i, j int) bool { return tables[i].Tag < tables[j].Tag })
	return tables
}

func checksum(b []byte) uint32 {
	var sum uint32
	for len(b) >= 4 {
		sum += binary.BigEndian.Uint32(b)
		b = b[4:]
	}
	if len(b) > 0 {
		var tail [4]byte
		copy(tail[:], b)
		sum += binary.BigEndian.Uint32(tail[:])
	}
	return sum
}

func pad4(n int) int { return (n + 3) &^ 3 }
