package keepass

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/salsa20"
)

func TestSalsaStream_ContinuousAcrossCalls(t *testing.T) {
	key := []byte("protected stream key")
	plain := bytes.Repeat([]byte("0123456789abcdef"), 20)

	want := make([]byte, len(plain))
	k := sha256.Sum256(key)
	salsa20.XORKeyStream(want, plain, salsaNonce[:], &k)

	s, err := newProtectedStream(StreamSalsa20, key)
	require.NoError(t, err)
	got := make([]byte, 0, len(plain))
	// куски разной длины, в том числе через границу 64-байтного блока
	for _, n := range []int{1, 7, 56, 65, 3, 100} {
		part := append([]byte{}, plain[len(got):len(got)+n]...)
		s.XORKeyStream(part, part)
		got = append(got, part...)
	}
	rest := append([]byte{}, plain[len(got):]...)
	s.XORKeyStream(rest, rest)
	got = append(got, rest...)

	assert.Equal(t, want, got)
}

func TestChaChaStream_KeyAndNonceFromSHA512(t *testing.T) {
	key := []byte("inner key")
	h := sha512.Sum512(key)
	ref, err := chacha20.NewUnauthenticatedCipher(h[:32], h[32:44])
	require.NoError(t, err)
	want := make([]byte, 150)
	ref.XORKeyStream(want, want)

	s, err := newProtectedStream(StreamChaCha20, key)
	require.NoError(t, err)
	got := make([]byte, 150)
	s.XORKeyStream(got[:10], got[:10])
	s.XORKeyStream(got[10:], got[10:])

	assert.Equal(t, want, got)
}

func TestNewProtectedStream_Unsupported(t *testing.T) {
	_, err := newProtectedStream(StreamArcFour, []byte("k"))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = newProtectedStream(42, []byte("k"))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = newProtectedStream(StreamSalsa20, nil)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestUnpad(t *testing.T) {
	block := append(bytes.Repeat([]byte{'a'}, 12), 4, 4, 4, 4)
	got, err := unpad(block)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{'a'}, 12), got)

	full := bytes.Repeat([]byte{16}, 16)
	got, err = unpad(full)
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, bad := range [][]byte{
		nil,
		append(bytes.Repeat([]byte{'a'}, 15), 0),
		append(bytes.Repeat([]byte{'a'}, 15), 17),
		append(bytes.Repeat([]byte{'a'}, 13), 1, 3, 3),
	} {
		_, err := unpad(bad)
		assert.ErrorIs(t, err, errBadPadding)
	}
}

func hashedBlock(buf *bytes.Buffer, index uint32, data []byte) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], index)
	buf.Write(b[:])
	if len(data) == 0 {
		buf.Write(make([]byte, sha256.Size))
	} else {
		sum := sha256.Sum256(data)
		buf.Write(sum[:])
	}
	binary.LittleEndian.PutUint32(b[:], uint32(len(data)))
	buf.Write(b[:])
	buf.Write(data)
}

func TestReadHashedBlocks(t *testing.T) {
	var buf bytes.Buffer
	hashedBlock(&buf, 0, []byte("hello, "))
	hashedBlock(&buf, 1, []byte("world"))
	hashedBlock(&buf, 2, nil)

	got, err := readHashedBlocks(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(got))

	corrupt := append([]byte{}, buf.Bytes()...)
	corrupt[4+32+4] ^= 0xff // первый байт данных
	_, err = readHashedBlocks(corrupt)
	assert.ErrorIs(t, err, errCorruptBlock)

	_, err = readHashedBlocks(buf.Bytes()[:20])
	assert.ErrorIs(t, err, errCorruptBlock)

	var skipped bytes.Buffer
	hashedBlock(&skipped, 1, []byte("x"))
	_, err = readHashedBlocks(skipped.Bytes())
	assert.ErrorIs(t, err, errCorruptBlock)
}

func TestReadHMACBlocks(t *testing.T) {
	base := bytes.Repeat([]byte{7}, 64)
	var buf bytes.Buffer
	for i, data := range [][]byte{[]byte("abc"), []byte("defg"), nil} {
		buf.Write(blockMAC(base, uint64(i), data))
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(len(data)))
		buf.Write(b[:])
		buf.Write(data)
	}

	got, err := readHMACBlocks(buf.Bytes(), base)
	require.NoError(t, err)
	assert.Equal(t, "abcdefg", string(got))

	_, err = readHMACBlocks(buf.Bytes(), bytes.Repeat([]byte{8}, 64))
	assert.ErrorIs(t, err, errCorruptBlock)
}

func TestTransformAES_ZeroRounds(t *testing.T) {
	key := bytes.Repeat([]byte{1}, 32)
	got, err := transformAES(key, bytes.Repeat([]byte{2}, 32), 0)
	require.NoError(t, err)
	want := sha256.Sum256(key)
	assert.Equal(t, want[:], got)

	_, err = transformAES(key, []byte("short"), 1)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestKDFArgon2_RejectsUnsupportedParameters(t *testing.T) {
	base := kdfParams{id: KDFArgon2d, seed: make([]byte, 32), iterations: 1, memory: 64 * 1024, parallelism: 1, version: argon2Version13}

	p := base
	p.version = 0x10
	_, err := p.transform(make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	p = base
	p.secret = []byte("secret")
	_, err = p.transform(make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	p = base
	p.parallelism = 0
	_, err = p.transform(make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	p = base
	got, err := p.transform(make([]byte, 32))
	require.NoError(t, err)
	assert.Len(t, got, 32)
}

func TestDecompress_StopsAfterFirstMember(t *testing.T) {
	doc := []byte("<KeePassFile></KeePassFile>")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(doc)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	buf.Write([]byte{4, 4, 4, 4})

	out, err := decompress(compressionGzip, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, doc, out)

	plain, err := decompress(compressionNone, doc)
	require.NoError(t, err)
	assert.Equal(t, doc, plain)

	_, err = decompress(compressionGzip, []byte("not gzip"))
	assert.ErrorIs(t, err, ErrOpenFailed)
}
