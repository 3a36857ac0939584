package font

import (
	"bytes"
	"encoding/binary"

	"github.com/andybalholm/brotli"
)

// knownTags is the WOFF2 table tag index; tags outside it are written inline.
var knownTags = []string{
	"cmap", "head", "hhea", "hmtx", "maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca", "prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern", "LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS", "GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL", "SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar", "fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar", "mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat", "Gloc", "Feat", "Sill",
}

const arbitraryTag = 63

// EncodeWOFF2 wraps the font as WOFF2. Tables keep their sfnt bytes (the null
// transform) and are compressed together as one brotli stream.
func EncodeWOFF2(f *Font) ([]byte, error) {
	raw, err := EncodeSFNT(f)
	if err != nil {
		return nil, err
	}
	sf, err := decodeSFNT(raw)
	if err != nil {
		return nil, err
	}

	var dir, stream bytes.Buffer
	for _, t := range sf.Tables {
		idx := tagIndex(t.Tag)
		flags := byte(idx)
		if t.Tag == "glyf" || t.Tag == "loca" {
			flags |= 3 << 6
		}
		dir.WriteByte(flags)
		if idx == arbitraryTag {
			dir.WriteString(t.Tag)
		}
		dir.Write(uintBase128(uint32(len(t.Data))))
		stream.Write(t.Data)
	}

	var compressed bytes.Buffer
	bw := brotli.NewWriterLevel(&compressed, brotli.BestCompression)
	if _, err := bw.Write(stream.Bytes()); err != nil {
		return nil, err
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}

	total := pad4(48 + dir.Len() + compressed.Len())
	hdr := make([]byte, 48)
	binary.BigEndian.PutUint32(hdr, sigWOFF2)
	binary.BigEndian.PutUint32(hdr[4:], sf.Flavor)
	binary.BigEndian.PutUint32(hdr[8:], uint32(total))
	binary.BigEndian.PutUint16(hdr[12:], uint16(len(sf.Tables)))
	binary.BigEndian.PutUint32(hdr[16:], uint32(len(raw)))
	binary.BigEndian.PutUint32(hdr[20:], uint32(compressed.Len()))
	binary.BigEndian.PutUint16(hdr[24:], 1)

	out := make([]byte, 0, total)
	out = append(out, hdr...)
	out = append(out, dir.Bytes()...)
	out = append(out, compressed.Bytes()...)
	return append(out, make([]byte, total-len(out))...), nil
}

func tagIndex(tag string) int {
	for i, k := range knownTags {
		if k == tag {
			return i
		}
	}
	return arbitraryTag
}

// uintBase128 encodes v as big-endian base 128 without leading zero bytes.
func uintBase128(v uint32) []byte {
	var tmp [5]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7f)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		tmp[i] = byte(v&0x7f) | 0x80
	}
	return append([]byte(nil), tmp[i:]...)
}
