package keepass

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Сигнатуры файла.
const (
	sigKeePass = 0x9AA2D903
	sigKDBX    = 0xB54BFB67
	sigKDBXPre = 0xB54BFB66 // ранние сборки 2.x
	sigKDB     = 0xB54BFB65 // KeePass 1.x
)

const maxMajorVersion = 4

// Поля внешнего заголовка.
const (
	fieldEndOfHeader         = 0
	fieldComment             = 1
	fieldCipherID            = 2
	fieldCompression         = 3
	fieldMasterSeed          = 4
	fieldTransformSeed       = 5
	fieldTransformRounds     = 6
	fieldEncryptionIV        = 7
	fieldProtectedStreamKey  = 8
	fieldStreamStartBytes    = 9
	fieldInnerRandomStreamID = 10
	fieldKdfParameters       = 11
	fieldPublicCustomData    = 12
)

const (
	compressionNone = 0
	compressionGzip = 1
)

type header struct {
	version            FormatVersion
	cipherID           UUID
	compression        uint32
	masterSeed         []byte
	encryptionIV       []byte
	kdf                kdfParams
	protectedStreamKey []byte
	streamStartBytes   []byte
	innerStreamID      uint32

	// raw: байты заголовка от сигнатуры до поля EndOfHeader включительно.
	raw []byte
}

func (h *header) isV4() bool {
	return h.version.Major >= 4
}

// reader читает поля little-endian и запоминает первую ошибку.
type reader struct {
	r   *bytes.Reader
	err error
}

func newReader(b []byte) *reader {
	return &reader{r: bytes.NewReader(b)}
}

func (rr *reader) readFull(b []byte) {
	if rr.err != nil {
		return
	}
	_, rr.err = io.ReadFull(rr.r, b)
}

func (rr *reader) readByte() byte {
	var b [1]byte
	rr.readFull(b[:])
	return b[0]
}

func (rr *reader) readUint16() uint16 {
	var b [2]byte
	rr.readFull(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

func (rr *reader) readUint32() uint32 {
	var b [4]byte
	rr.readFull(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// readBytes не выделяет больше, чем осталось во входе.
func (rr *reader) readBytes(n int64) []byte {
	if rr.err != nil {
		return nil
	}
	if n < 0 || n > int64(rr.r.Len()) {
		rr.err = io.ErrUnexpectedEOF
		return nil
	}
	b := make([]byte, n)
	rr.readFull(b)
	return b
}

func (rr *reader) offset() int64 {
	return rr.r.Size() - int64(rr.r.Len())
}

func readHeader(data []byte) (*header, error) {
	rr := newReader(data)
	sig1 := rr.readUint32()
	sig2 := rr.readUint32()
	ver := rr.readUint32()
	if rr.err != nil {
		return nil, wrap(ErrInvalidFormat, "file is too short")
	}
	if sig1 != sigKeePass {
		return nil, wrap(ErrInvalidFormat, "not a KeePass database")
	}
	switch sig2 {
	case sigKDBX, sigKDBXPre:
	case sigKDB:
		return nil, wrap(ErrInvalidFormat, "KeePass 1.x databases are not supported")
	default:
		return nil, wrap(ErrInvalidFormat, "unknown file signature %#08x", sig2)
	}

	h := &header{version: FormatVersion{Major: uint16(ver >> 16), Minor: uint16(ver)}}
	if h.version.Major > maxMajorVersion {
		return nil, wrap(ErrInvalidFormat, "unsupported file version %s", h.version)
	}

	for {
		id := rr.readByte()
		var size int64
		if h.isV4() {
			size = int64(int32(rr.readUint32()))
		} else {
			size = int64(rr.readUint16())
		}
		value := rr.readBytes(size)
		if rr.err != nil {
			return nil, wrap(ErrInvalidFormat, "truncated header")
		}
		if id == fieldEndOfHeader {
			break
		}
		if err := h.setField(id, value); err != nil {
			return nil, err
		}
	}
	h.raw = data[:rr.offset()]

	if err := h.validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *header) setField(id byte, value []byte) error {
	switch id {
	case fieldComment, fieldPublicCustomData:
		// не используются
	case fieldCipherID:
		if len(value) != len(h.cipherID) {
			return wrap(ErrInvalidFormat, "cipher id has %d bytes", len(value))
		}
		copy(h.cipherID[:], value)
	case fieldCompression:
		if len(value) != 4 {
			return wrap(ErrInvalidFormat, "bad compression flags")
		}
		h.compression = binary.LittleEndian.Uint32(value)
	case fieldMasterSeed:
		h.masterSeed = value
	case fieldTransformSeed:
		h.kdf.id = KDFAES
		h.kdf.seed = value
	case fieldTransformRounds:
		if len(value) != 8 {
			return wrap(ErrInvalidFormat, "bad transform rounds")
		}
		h.kdf.rounds = binary.LittleEndian.Uint64(value)
	case fieldEncryptionIV:
		h.encryptionIV = value
	case fieldProtectedStreamKey:
		h.protectedStreamKey = value
	case fieldStreamStartBytes:
		h.streamStartBytes = value
	case fieldInnerRandomStreamID:
		if len(value) != 4 {
			return wrap(ErrInvalidFormat, "bad inner random stream id")
		}
		h.innerStreamID = binary.LittleEndian.Uint32(value)
	case fieldKdfParameters:
		dict, err := parseVariantDictionary(value)
		if err != nil {
			return err
		}
		p, err := kdfParamsFromDictionary(dict)
		if err != nil {
			return err
		}
		h.kdf = p
	}
	return nil
}

func (h *header) validate() error {
	switch h.cipherID {
	case CipherAES256:
		if len(h.encryptionIV) != 16 {
			return wrap(ErrInvalidFormat, "AES encryption IV has %d bytes", len(h.encryptionIV))
		}
	case CipherChaCha20:
		if len(h.encryptionIV) != 12 {
			return wrap(ErrInvalidFormat, "ChaCha20 encryption IV has %d bytes", len(h.encryptionIV))
		}
	case cipherTwofish:
		return wrap(ErrInvalidFormat, "Twofish cipher is not supported")
	case UUID{}:
		return wrap(ErrInvalidFormat, "missing cipher id")
	default:
		return wrap(ErrInvalidFormat, "unknown cipher %s", h.cipherID)
	}
	if len(h.masterSeed) != 32 {
		return wrap(ErrInvalidFormat, "master seed has %d bytes", len(h.masterSeed))
	}
	if h.compression > compressionGzip {
		return wrap(ErrInvalidFormat, "unknown compression algorithm %d", h.compression)
	}
	if h.kdf.id == (UUID{}) {
		return wrap(ErrInvalidFormat, "missing key derivation parameters")
	}
	if h.isV4() {
		return nil
	}
	if len(h.streamStartBytes) != 32 {
		return wrap(ErrInvalidFormat, "stream start bytes have %d bytes", len(h.streamStartBytes))
	}
	return checkStreamID(h.innerStreamID, h.protectedStreamKey)
}
