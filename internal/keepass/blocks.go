package keepass

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"math"
)

// readHashedBlocks собирает поток блоков KDBX 3: index u32, SHA-256, size u32, data.
// Поток завершается блоком нулевого размера с нулевым хешем.
func readHashedBlocks(data []byte) ([]byte, error) {
	rr := newReader(data)
	var out bytes.Buffer
	for want := uint32(0); ; want++ {
		index := rr.readUint32()
		var sum [sha256.Size]byte
		rr.readFull(sum[:])
		size := rr.readUint32()
		if rr.err != nil {
			return nil, errCorruptBlock
		}
		if index != want {
			return nil, errCorruptBlock
		}
		if size == 0 {
			if sum != [sha256.Size]byte{} {
				return nil, errCorruptBlock
			}
			return out.Bytes(), nil
		}
		block := rr.readBytes(int64(size))
		if rr.err != nil {
			return nil, errCorruptBlock
		}
		if sha256.Sum256(block) != sum {
			return nil, errCorruptBlock
		}
		out.Write(block)
	}
}

// readHMACBlocks собирает поток блоков KDBX 4: HMAC-SHA-256, size i32, data.
func readHMACBlocks(data, baseKey []byte) ([]byte, error) {
	rr := newReader(data)
	var out bytes.Buffer
	for index := uint64(0); ; index++ {
		var mac [sha256.Size]byte
		rr.readFull(mac[:])
		size := int64(int32(rr.readUint32()))
		block := rr.readBytes(size)
		if rr.err != nil {
			return nil, errCorruptBlock
		}
		if !hmac.Equal(blockMAC(baseKey, index, block), mac[:]) {
			return nil, errCorruptBlock
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		out.Write(block)
	}
}

// hmacBaseKey = SHA512(masterSeed ‖ transformedKey ‖ 0x01).
func hmacBaseKey(masterSeed, transformed []byte) []byte {
	h := sha512.New()
	h.Write(masterSeed)
	h.Write(transformed)
	h.Write([]byte{1})
	return h.Sum(nil)
}

func blockKey(baseKey []byte, index uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], index)
	h := sha512.New()
	h.Write(b[:])
	h.Write(baseKey)
	return h.Sum(nil)
}

func blockMAC(baseKey []byte, index uint64, block []byte) []byte {
	var b [12]byte
	binary.LittleEndian.PutUint64(b[:8], index)
	binary.LittleEndian.PutUint32(b[8:], uint32(len(block)))
	m := hmac.New(sha256.New, blockKey(baseKey, index))
	m.Write(b[:])
	m.Write(block)
	return m.Sum(nil)
}

func headerMAC(baseKey, rawHeader []byte) []byte {
	m := hmac.New(sha256.New, blockKey(baseKey, math.MaxUint64))
	m.Write(rawHeader)
	return m.Sum(nil)
}
