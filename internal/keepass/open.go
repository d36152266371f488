package keepass

import (
	"bytes"
	"compress/gzip"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Open читает и расшифровывает файл базы. Файл не изменяется, состояние
// между вызовами не сохраняется.
func Open(path, password string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	return Decode(data, password)
}

// Decode расшифровывает содержимое файла базы, уже прочитанное в память.
func Decode(data []byte, password string) (*Database, error) {
	h, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	body := data[len(h.raw):]
	key := compositeKey(password)

	var db *Database
	if h.isV4() {
		db, err = decodeV4(h, body, key)
	} else {
		db, err = decodeV3(h, body, key)
	}
	if err != nil {
		return nil, err
	}
	db.Version = h.version
	db.open = true
	return db, nil
}

func decodeV3(h *header, body, key []byte) (*Database, error) {
	stream, err := newProtectedStream(h.innerStreamID, h.protectedStreamKey)
	if err != nil {
		return nil, err
	}
	transformed, err := h.kdf.transform(key)
	if err != nil {
		return nil, err
	}
	masterKey := sha256.Sum256(append(append([]byte{}, h.masterSeed...), transformed...))

	plain, err := decryptPayload(h.cipherID, masterKey[:], h.encryptionIV, body)
	if err != nil {
		return nil, decryptError(err)
	}
	if len(plain) < len(h.streamStartBytes) || !bytes.Equal(plain[:len(h.streamStartBytes)], h.streamStartBytes) {
		return nil, wrap(ErrInvalidCredentials, "stream start bytes do not match")
	}
	payload, err := readHashedBlocks(plain[len(h.streamStartBytes):])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	xmlData, err := decompress(h.compression, payload)
	if err != nil {
		return nil, err
	}

	db, headerHash, err := parseTree(xmlData, stream)
	if err != nil {
		return nil, err
	}
	if headerHash != nil {
		sum := sha256.Sum256(h.raw)
		if !bytes.Equal(headerHash, sum[:]) {
			return nil, wrap(ErrInvalidFormat, "header hash mismatch")
		}
	}
	return db, nil
}

func decodeV4(h *header, body, key []byte) (*Database, error) {
	if len(body) < 2*sha256.Size {
		return nil, wrap(ErrInvalidFormat, "truncated header checksum")
	}
	storedHash, storedMAC := body[:sha256.Size], body[sha256.Size:2*sha256.Size]
	body = body[2*sha256.Size:]

	sum := sha256.Sum256(h.raw)
	if !bytes.Equal(sum[:], storedHash) {
		return nil, wrap(ErrInvalidFormat, "header checksum mismatch")
	}

	transformed, err := h.kdf.transform(key)
	if err != nil {
		return nil, err
	}
	seeded := append(append([]byte{}, h.masterSeed...), transformed...)
	encKey := sha256.Sum256(seeded)
	macKey := hmacBaseKey(h.masterSeed, transformed)

	if !hmac.Equal(headerMAC(macKey, h.raw), storedMAC) {
		return nil, wrap(ErrInvalidCredentials, "header HMAC mismatch")
	}
	payload, err := readHMACBlocks(body, macKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	plain, err := decryptPayload(h.cipherID, encKey[:], h.encryptionIV, payload)
	if err != nil {
		// блоки уже подтверждены HMAC, значит ключ верный
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	plain, err = decompress(h.compression, plain)
	if err != nil {
		return nil, err
	}
	inner, xmlData, err := readInnerHeader(plain)
	if err != nil {
		return nil, err
	}
	stream, err := newProtectedStream(inner.streamID, inner.streamKey)
	if err != nil {
		return nil, err
	}
	db, _, err := parseTree(xmlData, stream)
	return db, err
}

func decryptError(err error) error {
	if errors.Is(err, errBadPadding) {
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	if errors.Is(err, ErrInvalidFormat) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrOpenFailed, err)
}

func decompress(flag uint32, data []byte) ([]byte, error) {
	if flag == compressionNone {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, wrap(ErrOpenFailed, "gzip: %v", err)
	}
	defer zr.Close()
	// читаем только первый gzip-член: после него может идти выравнивание
	zr.Multistream(false)
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, wrap(ErrOpenFailed, "gzip: %v", err)
	}
	return out, nil
}

// Поля внутреннего заголовка KDBX 4.
const (
	innerEnd       = 0
	innerStreamID  = 1
	innerStreamKey = 2
	innerBinary    = 3
)

type innerHeader struct {
	streamID  uint32
	streamKey []byte
	binaries  int
}

func readInnerHeader(b []byte) (innerHeader, []byte, error) {
	var ih innerHeader
	rr := newReader(b)
	for {
		id := rr.readByte()
		size := int64(int32(rr.readUint32()))
		value := rr.readBytes(size)
		if rr.err != nil {
			return ih, nil, wrap(ErrOpenFailed, "truncated inner header")
		}
		switch id {
		case innerEnd:
			return ih, b[rr.offset():], nil
		case innerStreamID:
			if len(value) != 4 {
				return ih, nil, wrap(ErrOpenFailed, "bad inner stream id")
			}
			ih.streamID = binary.LittleEndian.Uint32(value)
		case innerStreamKey:
			ih.streamKey = value
		case innerBinary:
			ih.binaries++
		default:
			return ih, nil, wrap(ErrOpenFailed, "unknown inner header field %d", id)
		}
	}
}
