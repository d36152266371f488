package keepass

import (
	"crypto/aes"
	"crypto/sha256"
	"math"

	dargon2 "github.com/tobischo/argon2"
	"golang.org/x/crypto/argon2"
)

// Идентификаторы функций формирования ключа.
var (
	KDFAES      = UUID{0xc9, 0xd9, 0xf3, 0x9a, 0x62, 0x8a, 0x44, 0x60, 0xbf, 0x74, 0x0d, 0x08, 0xc1, 0x8a, 0x4f, 0xea}
	KDFAES4     = UUID{0x7c, 0x02, 0xbb, 0x82, 0x79, 0xa7, 0x4a, 0xc0, 0x92, 0x7d, 0x11, 0x4a, 0x00, 0x64, 0x82, 0x38} // AES-KDF в файлах KDBX 4 от KeePassXC
	KDFArgon2d  = UUID{0xef, 0x63, 0x6d, 0xdf, 0x8c, 0x29, 0x44, 0x4b, 0x91, 0xf7, 0xa9, 0xa4, 0x03, 0xe3, 0x0a, 0x0c}
	KDFArgon2id = UUID{0x9e, 0x29, 0x8b, 0x19, 0x56, 0xdb, 0x47, 0x73, 0xb2, 0x3d, 0xfc, 0x3e, 0xc6, 0xf0, 0xa1, 0xe6}
)

const argon2Version13 = 0x13

type kdfParams struct {
	id UUID

	// соль (S) для AES-KDF и Argon2
	seed []byte

	// AES-KDF
	rounds uint64

	// Argon2
	iterations  uint64
	memory      uint64 // в байтах
	parallelism uint32
	version     uint32
	secret      []byte
	assoc       []byte
}

func kdfParamsFromDictionary(dict map[string]variant) (kdfParams, error) {
	var p kdfParams
	raw, ok := dict["$UUID"].bytes()
	if !ok || len(raw) != len(p.id) {
		return p, wrap(ErrInvalidFormat, "missing key derivation function id")
	}
	copy(p.id[:], raw)

	bad := func(name string) (kdfParams, error) {
		return kdfParams{}, wrap(ErrInvalidFormat, "bad key derivation parameter %s", name)
	}

	switch p.id {
	case KDFAES, KDFAES4:
		if p.seed, ok = dict["S"].bytes(); !ok {
			return bad("S")
		}
		if p.rounds, ok = dict["R"].uint64(); !ok {
			return bad("R")
		}
	case KDFArgon2d, KDFArgon2id:
		if p.seed, ok = dict["S"].bytes(); !ok {
			return bad("S")
		}
		if p.parallelism, ok = dict["P"].uint32(); !ok {
			return bad("P")
		}
		if p.memory, ok = dict["M"].uint64(); !ok {
			return bad("M")
		}
		if p.iterations, ok = dict["I"].uint64(); !ok {
			return bad("I")
		}
		if p.version, ok = dict["V"].uint32(); !ok {
			return bad("V")
		}
		if v, present := dict["K"]; present {
			p.secret, _ = v.bytes()
		}
		if v, present := dict["A"]; present {
			p.assoc, _ = v.bytes()
		}
	default:
		return p, wrap(ErrInvalidFormat, "unknown key derivation function %s", p.id)
	}
	return p, nil
}

// compositeKey: ключ из одного мастер-пароля: SHA256(SHA256(password)).
func compositeKey(password string) []byte {
	h := sha256.Sum256([]byte(password))
	k := sha256.Sum256(h[:])
	return k[:]
}

func (p *kdfParams) transform(key []byte) ([]byte, error) {
	switch p.id {
	case KDFAES, KDFAES4:
		return transformAES(key, p.seed, p.rounds)
	case KDFArgon2d, KDFArgon2id:
		return p.transformArgon2(key)
	default:
		return nil, wrap(ErrInvalidFormat, "unknown key derivation function %s", p.id)
	}
}

func transformAES(key, seed []byte, rounds uint64) ([]byte, error) {
	if len(seed) != 32 {
		return nil, wrap(ErrInvalidFormat, "transform seed has %d bytes", len(seed))
	}
	block, err := aes.NewCipher(seed)
	if err != nil {
		return nil, wrap(ErrInvalidFormat, "transform seed: %v", err)
	}
	out := make([]byte, 32)
	copy(out, key)
	for i := uint64(0); i < rounds; i++ {
		block.Encrypt(out[:16], out[:16])
		block.Encrypt(out[16:], out[16:])
	}
	sum := sha256.Sum256(out)
	return sum[:], nil
}

func (p *kdfParams) transformArgon2(key []byte) ([]byte, error) {
	if p.version != argon2Version13 {
		return nil, wrap(ErrInvalidFormat, "unsupported Argon2 version %#x", p.version)
	}
	if len(p.secret) > 0 || len(p.assoc) > 0 {
		return nil, wrap(ErrInvalidFormat, "Argon2 secret key and associated data are not supported")
	}
	if p.parallelism == 0 || p.parallelism > math.MaxUint8 {
		return nil, wrap(ErrInvalidFormat, "bad Argon2 parallelism %d", p.parallelism)
	}
	if p.iterations == 0 || p.iterations > math.MaxUint32 {
		return nil, wrap(ErrInvalidFormat, "bad Argon2 iterations %d", p.iterations)
	}
	mem := p.memory / 1024
	if mem == 0 || mem > math.MaxUint32 {
		return nil, wrap(ErrInvalidFormat, "bad Argon2 memory %d", p.memory)
	}

	t, m, threads := uint32(p.iterations), uint32(mem), uint8(p.parallelism)
	if p.id == KDFArgon2id {
		return argon2.IDKey(key, p.seed, t, m, threads, 32), nil
	}
	return dargon2.DKey(key, p.seed, t, m, threads, 32), nil
}
