package keepass

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/salsa20/salsa"
)

// Алгоритмы внутреннего потока для защищённых значений.
const (
	StreamNone     = 0
	StreamArcFour  = 1
	StreamSalsa20  = 2
	StreamChaCha20 = 3
)

var salsaNonce = [8]byte{0xe8, 0x30, 0x09, 0x4b, 0x97, 0x20, 0x5d, 0x2a}

// protectedStream: непрерывный ключевой поток на весь XML-документ.
// Каждое защищённое значение потребляет ровно столько байт, какова его длина.
type protectedStream interface {
	XORKeyStream(dst, src []byte)
}

func checkStreamID(id uint32, key []byte) error {
	switch id {
	case StreamNone:
		return nil
	case StreamSalsa20, StreamChaCha20:
		if len(key) == 0 {
			return wrap(ErrInvalidFormat, "missing protected stream key")
		}
		return nil
	case StreamArcFour:
		return wrap(ErrInvalidFormat, "ArcFour inner stream is not supported")
	default:
		return wrap(ErrInvalidFormat, "unknown inner random stream %d", id)
	}
}

func newProtectedStream(id uint32, key []byte) (protectedStream, error) {
	if err := checkStreamID(id, key); err != nil {
		return nil, err
	}
	switch id {
	case StreamSalsa20:
		return newSalsaStream(sha256.Sum256(key)), nil
	case StreamChaCha20:
		h := sha512.Sum512(key)
		c, err := chacha20.NewUnauthenticatedCipher(h[:32], h[32:44])
		if err != nil {
			return nil, wrap(ErrOpenFailed, "inner stream: %v", err)
		}
		return c, nil
	default:
		return plainStream{}, nil
	}
}

type plainStream struct{}

func (plainStream) XORKeyStream(dst, src []byte) { copy(dst, src) }

// salsaStream: Salsa20 с 64-битным счётчиком блоков, позиция сохраняется между вызовами.
type salsaStream struct {
	key     [32]byte
	counter [16]byte
	block   [64]byte
	pos     int
	n       uint64
}

func newSalsaStream(key [32]byte) *salsaStream {
	s := &salsaStream{key: key, pos: 64}
	copy(s.counter[:8], salsaNonce[:])
	return s
}

func (s *salsaStream) XORKeyStream(dst, src []byte) {
	var zero [64]byte
	for i := range src {
		if s.pos == len(s.block) {
			binary.LittleEndian.PutUint64(s.counter[8:], s.n)
			salsa.XORKeyStream(s.block[:], zero[:], &s.counter, &s.key)
			s.n++
			s.pos = 0
		}
		dst[i] = src[i] ^ s.block[s.pos]
		s.pos++
	}
}
