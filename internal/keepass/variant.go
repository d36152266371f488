package keepass

import (
	"encoding/binary"
)

// Типы значений VariantDictionary.
const (
	vdEnd    = 0x00
	vdUInt32 = 0x04
	vdUInt64 = 0x05
	vdBool   = 0x08
	vdInt32  = 0x0C
	vdInt64  = 0x0D
	vdString = 0x18
	vdBytes  = 0x42
)

const (
	vdVersion      = 0x0100
	vdCriticalMask = 0xFF00
)

type variant struct {
	kind byte
	data []byte
}

func (v variant) uint32() (uint32, bool) {
	if v.kind != vdUInt32 || len(v.data) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(v.data), true
}

func (v variant) uint64() (uint64, bool) {
	if v.kind != vdUInt64 || len(v.data) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(v.data), true
}

func (v variant) bytes() ([]byte, bool) {
	if v.kind != vdBytes {
		return nil, false
	}
	return v.data, true
}

// parseVariantDictionary разбирает словарь параметров KDF из заголовка KDBX 4.
func parseVariantDictionary(b []byte) (map[string]variant, error) {
	rr := newReader(b)
	ver := rr.readUint16()
	if rr.err != nil {
		return nil, wrap(ErrInvalidFormat, "truncated kdf parameters")
	}
	if ver&vdCriticalMask > vdVersion&vdCriticalMask {
		return nil, wrap(ErrInvalidFormat, "unsupported kdf parameters version %#04x", ver)
	}

	dict := make(map[string]variant)
	for {
		kind := rr.readByte()
		if rr.err != nil {
			return nil, wrap(ErrInvalidFormat, "truncated kdf parameters")
		}
		if kind == vdEnd {
			return dict, nil
		}
		key := rr.readBytes(int64(int32(rr.readUint32())))
		val := rr.readBytes(int64(int32(rr.readUint32())))
		if rr.err != nil {
			return nil, wrap(ErrInvalidFormat, "truncated kdf parameters")
		}
		switch kind {
		case vdUInt32, vdUInt64, vdBool, vdInt32, vdInt64, vdString, vdBytes:
		default:
			return nil, wrap(ErrInvalidFormat, "unknown kdf parameter type %#02x", kind)
		}
		dict[string(key)] = variant{kind: kind, data: val}
	}
}
