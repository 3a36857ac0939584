package font

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

func decodeGoRegular(t *testing.T) *Font {
	t.Helper()
	f, err := Decode(goregular.TTF)
	require.NoError(t, err)
	return f
}

func TestDecode_TrueType(t *testing.T) {
	f := decodeGoRegular(t)
	assert.Equal(t, uint32(flavorTrueType), f.Flavor)
	assert.Equal(t, ".ttf", f.SFNTExt())

	for _, tag := range []string{"head", "glyf", "loca", "cmap"} {
		_, ok := f.Table(tag)
		assert.True(t, ok, tag)
	}
}

func TestDecode_Unsupported(t *testing.T) {
	_, err := Decode([]byte("not a font at all"))
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = Decode([]byte("wOF2 and then some"))
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = Decode([]byte{1})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestEncodeSFNT_ValidAndChecksummed(t *testing.T) {
	out, err := EncodeSFNT(decodeGoRegular(t))
	require.NoError(t, err)

	_, err = sfnt.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, uint32(checksumMagic), checksum(out))
	assert.Zero(t, len(out)%4)
}

func TestEncodeWOFF_RoundTrip(t *testing.T) {
	orig := decodeGoRegular(t)
	out, err := EncodeWOFF(orig)
	require.NoError(t, err)

	assert.Equal(t, uint32(sigWOFF), binary.BigEndian.Uint32(out))
	assert.Equal(t, uint32(len(out)), binary.BigEndian.Uint32(out[8:]))
	assert.Less(t, len(out), len(goregular.TTF))

	back, err := Decode(out)
	require.NoError(t, err)
	require.Len(t, back.Tables, len(orig.Tables))
	for _, tbl := range back.Tables {
		want, ok := orig.Table(tbl.Tag)
		require.True(t, ok)
		if tbl.Tag == "head" {
			// checkSumAdjustment is recomputed
			assert.Equal(t, want.Data[:8], tbl.Data[:8])
			assert.Equal(t, want.Data[12:], tbl.Data[12:])
			continue
		}
		assert.Equal(t, want.Data, tbl.Data, tbl.Tag)
	}
}

func TestEncodeWOFF2_Layout(t *testing.T) {
	orig := decodeGoRegular(t)
	out, err := EncodeWOFF2(orig)
	require.NoError(t, err)

	require.Equal(t, uint32(sigWOFF2), binary.BigEndian.Uint32(out))
	assert.Equal(t, uint32(len(out)), binary.BigEndian.Uint32(out[8:]))
	assert.Zero(t, len(out)%4)
	n := int(binary.BigEndian.Uint16(out[12:]))
	assert.Equal(t, len(orig.Tables), n)

	// walk the table directory
	pos := 48
	var total int
	var tags []string
	for i := 0; i < n; i++ {
		flags := out[pos]
		pos++
		var tag string
		if idx := int(flags & 0x3f); idx == arbitraryTag {
			tag = string(out[pos : pos+4])
			pos += 4
		} else {
			tag = knownTags[idx]
		}
		if tag == "glyf" || tag == "loca" {
			assert.Equal(t, byte(3), flags>>6, tag)
		}
		length, size := readUIntBase128(out[pos:])
		pos += size
		total += int(length)
		tags = append(tags, tag)
	}
	assert.IsIncreasing(t, tags)

	compLen := int(binary.BigEndian.Uint32(out[20:]))
	stream, err := io.ReadAll(brotli.NewReader(bytes.NewReader(out[pos : pos+compLen])))
	require.NoError(t, err)
	assert.Len(t, stream, total)

	glyf, _ := orig.Table("glyf")
	assert.True(t, bytes.Contains(stream, glyf.Data))
}

func TestUIntBase128(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 16383, 16384, 1 << 28, 0xffffffff} {
		enc := uintBase128(v)
		got, n := readUIntBase128(enc)
		assert.Equal(t, v, got)
		assert.Len(t, enc, n)
		assert.NotEqual(t, byte(0x80), enc[0], "no leading zeros")
	}
	assert.Equal(t, []byte{0x81, 0x00}, uintBase128(128))
}

func readUIntBase128(b []byte) (uint32, int) {
	var v uint32
	for i := 0; i < 5; i++ {
		v = v<<7 | uint32(b[i]&0x7f)
		if b[i]&0x80 == 0 {
			return v, i + 1
		}
	}
	return v, 5
}
