// Package keepasstest собирает файлы KDBX для тестов: дерево задаётся в коде,
// бинарные фикстуры не нужны.
package keepasstest

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"

	dargon2 "github.com/tobischo/argon2"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/salsa20"

	"KeePassLookup/internal/keepass"
)

const (
	sigKeePass = 0x9AA2D903
	sigKDBX    = 0xB54BFB67
)

var salsaNonce = []byte{0xe8, 0x30, 0x09, 0x4b, 0x97, 0x20, 0x5d, 0x2a}

// Options задаёт параметры кодирования. Нулевое значение даёт KDBX 4 с AES-256,
// AES-KDF и внутренним потоком ChaCha20.
type Options struct {
	Version     int          // 3 или 4
	Cipher      keepass.UUID // по умолчанию AES-256
	KDF         keepass.UUID // по умолчанию AES-KDF; для 3.x допустим только AES-KDF
	Rounds      uint64       // раунды AES-KDF
	Compress    bool
	InnerStream uint32 // по умолчанию Salsa20 для 3.x и ChaCha20 для 4.x
	BlockSize   int

	// Comment пишется первым полем заголовка: тесты портят его байты,
	// не затрагивая ключевой материал.
	Comment string

	// OmitHeaderHash: для 3.x не писать Meta/HeaderHash.
	OmitHeaderHash bool

	// MetaBinary пишется защищённым элементом Meta/Binaries/Binary перед деревом.
	MetaBinary []byte

	// Trailer дописывается после сжатого содержимого до шифрования
	// (так делает, например, gokeepasslib).
	Trailer []byte

	Generator string
}

func (o Options) withDefaults() Options {
	if o.Version == 0 {
		o.Version = 4
	}
	if o.Cipher == (keepass.UUID{}) {
		o.Cipher = keepass.CipherAES256
	}
	if o.KDF == (keepass.UUID{}) {
		o.KDF = keepass.KDFAES
	}
	if o.Rounds == 0 {
		o.Rounds = 16
	}
	if o.InnerStream == 0 {
		if o.Version == 3 {
			o.InnerStream = keepass.StreamSalsa20
		} else {
			o.InnerStream = keepass.StreamChaCha20
		}
	}
	if o.BlockSize <= 0 {
		o.BlockSize = 256
	}
	if o.Generator == "" {
		o.Generator = "keepasstest"
	}
	return o
}

// CommentOffset: смещение первого байта Comment в файле заданной версии.
func CommentOffset(version int) int {
	if version == 3 {
		return 12 + 1 + 2
	}
	return 12 + 1 + 4
}

// Encode кодирует дерево с корнем root в файл KDBX.
func Encode(root *keepass.Group, password string, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	switch opts.Version {
	case 3:
		if opts.KDF != keepass.KDFAES {
			return nil, fmt.Errorf("kdbx 3 supports only AES-KDF")
		}
		return encodeV3(root, password, opts)
	case 4:
		return encodeV4(root, password, opts)
	default:
		return nil, fmt.Errorf("unsupported version %d", opts.Version)
	}
}

// WriteFile кодирует дерево во временный файл теста и возвращает его путь.
func WriteFile(t testing.TB, root *keepass.Group, password string, opts Options) string {
	t.Helper()
	data, err := Encode(root, password, opts)
	if err != nil {
		t.Fatalf("encode kdbx: %v", err)
	}
	path := filepath.Join(t.TempDir(), "db.kdbx")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write kdbx: %v", err)
	}
	return path
}

func encodeV3(root *keepass.Group, password string, opts Options) ([]byte, error) {
	masterSeed := random(32)
	iv := random(ivSize(opts.Cipher))
	transformSeed := random(32)
	streamKey := random(32)
	startBytes := random(32)

	hw := &headerWriter{wide: false}
	hw.signature(3, 1)
	if opts.Comment != "" {
		hw.field(1, []byte(opts.Comment))
	}
	hw.field(4, masterSeed)
	hw.field(2, opts.Cipher[:])
	hw.field(3, u32(compressionFlag(opts.Compress)))
	hw.field(5, transformSeed)
	hw.field(6, u64(opts.Rounds))
	hw.field(7, iv)
	hw.field(8, streamKey)
	hw.field(9, startBytes)
	hw.field(10, u32(opts.InnerStream))
	hw.field(0, []byte("\r\n\r\n"))
	hdr := hw.buf.Bytes()

	var headerHash []byte
	if !opts.OmitHeaderHash {
		sum := sha256.Sum256(hdr)
		headerHash = sum[:]
	}
	ks, err := newKeystream(opts.InnerStream, streamKey)
	if err != nil {
		return nil, err
	}
	doc := renderXML(root, opts, ks, headerHash)
	payload, err := compress(doc, opts.Compress)
	if err != nil {
		return nil, err
	}
	payload = append(payload, opts.Trailer...)

	plain := append(append([]byte{}, startBytes...), hashedBlocks(payload, opts.BlockSize)...)
	transformed, err := transformAES(compositeKey(password), transformSeed, opts.Rounds)
	if err != nil {
		return nil, err
	}
	masterKey := sha256.Sum256(append(append([]byte{}, masterSeed...), transformed...))
	ct, err := encrypt(opts.Cipher, masterKey[:], iv, plain)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, hdr...), ct...), nil
}

func encodeV4(root *keepass.Group, password string, opts Options) ([]byte, error) {
	masterSeed := random(32)
	iv := random(ivSize(opts.Cipher))
	kdfSeed := random(32)
	streamKey := random(64)

	hw := &headerWriter{wide: true}
	hw.signature(4, 0)
	if opts.Comment != "" {
		hw.field(1, []byte(opts.Comment))
	}
	hw.field(4, masterSeed)
	hw.field(2, opts.Cipher[:])
	hw.field(3, u32(compressionFlag(opts.Compress)))
	hw.field(7, iv)
	hw.field(11, kdfDictionary(opts, kdfSeed))
	hw.field(0, []byte("\r\n\r\n"))
	hdr := hw.buf.Bytes()

	transformed, err := transform(opts, compositeKey(password), kdfSeed)
	if err != nil {
		return nil, err
	}
	seeded := append(append([]byte{}, masterSeed...), transformed...)
	encKey := sha256.Sum256(seeded)
	macKey := sha512.Sum512(append(seeded, 1))

	ks, err := newKeystream(opts.InnerStream, streamKey)
	if err != nil {
		return nil, err
	}
	var inner bytes.Buffer
	innerField(&inner, 1, u32(opts.InnerStream))
	innerField(&inner, 2, streamKey)
	innerField(&inner, 0, nil)
	inner.Write(renderXML(root, opts, ks, nil))

	payload, err := compress(inner.Bytes(), opts.Compress)
	if err != nil {
		return nil, err
	}
	payload = append(payload, opts.Trailer...)
	ct, err := encrypt(opts.Cipher, encKey[:], iv, payload)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Write(hdr)
	hash := sha256.Sum256(hdr)
	out.Write(hash[:])
	out.Write(mac(macKey[:], math.MaxUint64, hdr, false))
	out.Write(hmacBlocks(ct, macKey[:], opts.BlockSize))
	return out.Bytes(), nil
}

type headerWriter struct {
	buf  bytes.Buffer
	wide bool
}

func (w *headerWriter) signature(major, minor uint16) {
	w.buf.Write(u32(sigKeePass))
	w.buf.Write(u32(sigKDBX))
	w.buf.Write(u32(uint32(major)<<16 | uint32(minor)))
}

func (w *headerWriter) field(id byte, value []byte) {
	w.buf.WriteByte(id)
	if w.wide {
		w.buf.Write(u32(uint32(len(value))))
	} else {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(len(value)))
		w.buf.Write(b[:])
	}
	w.buf.Write(value)
}

func innerField(buf *bytes.Buffer, id byte, value []byte) {
	buf.WriteByte(id)
	buf.Write(u32(uint32(len(value))))
	buf.Write(value)
}

func kdfDictionary(opts Options, seed []byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x01})
	item := func(kind byte, key string, value []byte) {
		buf.WriteByte(kind)
		buf.Write(u32(uint32(len(key))))
		buf.WriteString(key)
		buf.Write(u32(uint32(len(value))))
		buf.Write(value)
	}
	item(0x42, "$UUID", opts.KDF[:])
	switch opts.KDF {
	case keepass.KDFAES, keepass.KDFAES4:
		item(0x05, "R", u64(opts.Rounds))
		item(0x42, "S", seed)
	default:
		item(0x42, "S", seed)
		item(0x04, "P", u32(argonParallelism))
		item(0x05, "M", u64(argonMemoryKiB*1024))
		item(0x05, "I", u64(argonIterations))
		item(0x04, "V", u32(0x13))
	}
	buf.WriteByte(0x00)
	return buf.Bytes()
}

const (
	argonParallelism = 2
	argonMemoryKiB   = 1024
	argonIterations  = 2
)

func compositeKey(password string) []byte {
	h := sha256.Sum256([]byte(password))
	k := sha256.Sum256(h[:])
	return k[:]
}

func transform(opts Options, key, seed []byte) ([]byte, error) {
	switch opts.KDF {
	case keepass.KDFAES, keepass.KDFAES4:
		return transformAES(key, seed, opts.Rounds)
	case keepass.KDFArgon2id:
		return argon2.IDKey(key, seed, argonIterations, argonMemoryKiB, argonParallelism, 32), nil
	case keepass.KDFArgon2d:
		return dargon2.DKey(key, seed, argonIterations, argonMemoryKiB, argonParallelism, 32), nil
	default:
		return nil, fmt.Errorf("unknown kdf %s", opts.KDF)
	}
}

func transformAES(key, seed []byte, rounds uint64) ([]byte, error) {
	block, err := aes.NewCipher(seed)
	if err != nil {
		return nil, err
	}
	out := append([]byte{}, key...)
	for i := uint64(0); i < rounds; i++ {
		block.Encrypt(out[:16], out[:16])
		block.Encrypt(out[16:], out[16:])
	}
	sum := sha256.Sum256(out)
	return sum[:], nil
}

func encrypt(id keepass.UUID, key, iv, plain []byte) ([]byte, error) {
	switch id {
	case keepass.CipherAES256:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		n := aes.BlockSize - len(plain)%aes.BlockSize
		padded := append(append([]byte{}, plain...), bytes.Repeat([]byte{byte(n)}, n)...)
		ct := make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)
		return ct, nil
	case keepass.CipherChaCha20:
		c, err := chacha20.NewUnauthenticatedCipher(key, iv)
		if err != nil {
			return nil, err
		}
		ct := make([]byte, len(plain))
		c.XORKeyStream(ct, plain)
		return ct, nil
	default:
		return nil, fmt.Errorf("unknown cipher %s", id)
	}
}

func ivSize(id keepass.UUID) int {
	if id == keepass.CipherChaCha20 {
		return 12
	}
	return aes.BlockSize
}

func compressionFlag(on bool) uint32 {
	if on {
		return 1
	}
	return 0
}

func compress(data []byte, on bool) ([]byte, error) {
	if !on {
		return data, nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func hashedBlocks(data []byte, size int) []byte {
	var out bytes.Buffer
	index := uint32(0)
	for len(data) > 0 {
		n := min(size, len(data))
		sum := sha256.Sum256(data[:n])
		out.Write(u32(index))
		out.Write(sum[:])
		out.Write(u32(uint32(n)))
		out.Write(data[:n])
		data = data[n:]
		index++
	}
	out.Write(u32(index))
	out.Write(make([]byte, sha256.Size))
	out.Write(u32(0))
	return out.Bytes()
}

func hmacBlocks(data, baseKey []byte, size int) []byte {
	var out bytes.Buffer
	index := uint64(0)
	for len(data) > 0 {
		n := min(size, len(data))
		out.Write(mac(baseKey, index, data[:n], true))
		out.Write(u32(uint32(n)))
		out.Write(data[:n])
		data = data[n:]
		index++
	}
	out.Write(mac(baseKey, index, nil, true))
	out.Write(u32(0))
	return out.Bytes()
}

// mac считает HMAC-SHA-256 блока; для блоков данных в сообщение входят индекс и длина.
func mac(baseKey []byte, index uint64, data []byte, block bool) []byte {
	ib := u64(index)
	kh := sha512.New()
	kh.Write(ib)
	kh.Write(baseKey)
	m := hmac.New(sha256.New, kh.Sum(nil))
	if block {
		m.Write(ib)
		m.Write(u32(uint32(len(data))))
	}
	m.Write(data)
	return m.Sum(nil)
}

type keystream interface {
	next(n int) []byte
}

type salsaKeystream struct {
	key  [32]byte
	used int
}

// next каждый раз генерирует поток с начала: фикстуры маленькие.
func (s *salsaKeystream) next(n int) []byte {
	buf := make([]byte, s.used+n)
	salsa20.XORKeyStream(buf, buf, salsaNonce, &s.key)
	s.used += n
	return buf[s.used-n:]
}

type chachaKeystream struct {
	c *chacha20.Cipher
}

func (s chachaKeystream) next(n int) []byte {
	buf := make([]byte, n)
	s.c.XORKeyStream(buf, buf)
	return buf
}

type zeroKeystream struct{}

func (zeroKeystream) next(n int) []byte { return make([]byte, n) }

func newKeystream(id uint32, key []byte) (keystream, error) {
	switch id {
	case keepass.StreamSalsa20:
		return &salsaKeystream{key: sha256.Sum256(key)}, nil
	case keepass.StreamChaCha20:
		h := sha512.Sum512(key)
		c, err := chacha20.NewUnauthenticatedCipher(h[:32], h[32:44])
		if err != nil {
			return nil, err
		}
		return chachaKeystream{c: c}, nil
	case keepass.StreamNone:
		return zeroKeystream{}, nil
	default:
		return nil, fmt.Errorf("unsupported inner stream %d", id)
	}
}

type xmlWriter struct {
	buf bytes.Buffer
	ks  keystream
}

func (w *xmlWriter) open(tag string)  { w.buf.WriteString("<" + tag + ">") }
func (w *xmlWriter) close(tag string) { w.buf.WriteString("</" + tag + ">") }

func (w *xmlWriter) leaf(tag, text string) {
	w.open(tag)
	_ = xml.EscapeText(&w.buf, []byte(text))
	w.close(tag)
}

func (w *xmlWriter) protected(tag, attrs string, plain []byte) {
	mask := w.ks.next(len(plain))
	ct := make([]byte, len(plain))
	for i := range plain {
		ct[i] = plain[i] ^ mask[i]
	}
	w.buf.WriteString("<" + tag + attrs + ` Protected="True">`)
	w.buf.WriteString(base64.StdEncoding.EncodeToString(ct))
	w.close(tag)
}

func (w *xmlWriter) uuid(id keepass.UUID) {
	w.leaf("UUID", base64.StdEncoding.EncodeToString(id[:]))
}

func renderXML(root *keepass.Group, opts Options, ks keystream, headerHash []byte) []byte {
	w := &xmlWriter{ks: ks}
	w.buf.WriteString(`<?xml version="1.0" encoding="utf-8" standalone="yes"?>` + "\n")
	w.open("KeePassFile")
	w.open("Meta")
	w.leaf("Generator", opts.Generator)
	if headerHash != nil {
		w.leaf("HeaderHash", base64.StdEncoding.EncodeToString(headerHash))
	}
	if opts.MetaBinary != nil {
		w.open("Binaries")
		w.protected("Binary", ` ID="0"`, opts.MetaBinary)
		w.close("Binaries")
	}
	w.close("Meta")
	w.open("Root")
	if root != nil {
		w.group(root)
	}
	w.buf.WriteString("<DeletedObjects />")
	w.close("Root")
	w.close("KeePassFile")
	return w.buf.Bytes()
}

func (w *xmlWriter) group(g *keepass.Group) {
	w.open("Group")
	w.uuid(g.UUID)
	w.leaf("Name", g.Name)
	for _, e := range g.Entries {
		w.entry(e, true)
	}
	for _, child := range g.Groups {
		w.group(child)
	}
	w.close("Group")
}

func (w *xmlWriter) entry(e *keepass.Entry, withHistory bool) {
	w.open("Entry")
	w.uuid(e.UUID)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.open("String")
		w.leaf("Key", k)
		if k == keepass.FieldPassword {
			w.protected("Value", "", []byte(e.Fields[k]))
		} else {
			w.leaf("Value", e.Fields[k])
		}
		w.close("String")
	}
	if withHistory && len(e.History) > 0 {
		w.open("History")
		for _, h := range e.History {
			w.entry(h, false)
		}
		w.close("History")
	}
	w.close("Entry")
}

func random(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

func u32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func u64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}
