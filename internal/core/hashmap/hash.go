package hashmap

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Hasher maps a key to a 32-bit hash. The bucket is hash % bucket count.
type Hasher[K any] func(key K) uint32

// SuperFastHash is Paul Hsieh's avalanche hash over a byte string.
func SuperFastHash(data []byte) uint32 {
	n := len(data)
	if n == 0 {
		return 0
	}
	hash := uint32(n)
	rem := n & 3
	i := 0
	for blocks := n >> 2; blocks > 0; blocks-- {
		hash += uint32(binary.LittleEndian.Uint16(data[i:]))
		tmp := (uint32(binary.LittleEndian.Uint16(data[i+2:])) << 11) ^ hash
		hash = (hash << 16) ^ tmp
		hash += hash >> 11
		i += 4
	}

	// Trailing bytes are read as signed chars.
	switch rem {
	case 3:
		hash += uint32(binary.LittleEndian.Uint16(data[i:]))
		hash ^= hash << 16
		hash ^= uint32(int8(data[i+2])) << 18
		hash += hash >> 11
	case 2:
		hash += uint32(binary.LittleEndian.Uint16(data[i:]))
		hash ^= hash << 11
		hash += hash >> 17
	case 1:
		hash += uint32(int8(data[i]))
		hash ^= hash << 10
		hash += hash >> 1
	}

	// Final avalanche.
	hash ^= hash << 3
	hash += hash >> 5
	hash ^= hash << 4
	hash += hash >> 17
	hash ^= hash << 25
	hash += hash >> 6
	return hash
}

// DefaultHasher hashes the byte representation of a key with SuperFastHash.
func DefaultHasher[K comparable]() Hasher[K] {
	return func(key K) uint32 {
		return SuperFastHash(keyBytes(key))
	}
}

func keyBytes(key any) []byte {
	var b [8]byte
	switch k := key.(type) {
	case string:
		return []byte(k)
	case bool:
		if k {
			return []byte{1}
		}
		return []byte{0}
	case int8:
		return []byte{byte(k)}
	case uint8:
		return []byte{k}
	case int16:
		binary.LittleEndian.PutUint16(b[:], uint16(k))
		return b[:2]
	case uint16:
		binary.LittleEndian.PutUint16(b[:], k)
		return b[:2]
	case int32:
		binary.LittleEndian.PutUint32(b[:], uint32(k))
		return b[:4]
	case uint32:
		binary.LittleEndian.PutUint32(b[:], k)
		return b[:4]
	case int:
		binary.LittleEndian.PutUint64(b[:], uint64(k))
		return b[:]
	case uint:
		binary.LittleEndian.PutUint64(b[:], uint64(k))
		return b[:]
	case int64:
		binary.LittleEndian.PutUint64(b[:], uint64(k))
		return b[:]
	case uint64:
		binary.LittleEndian.PutUint64(b[:], k)
		return b[:]
	case uintptr:
		binary.LittleEndian.PutUint64(b[:], uint64(k))
		return b[:]
	case float32:
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(k))
		return b[:4]
	case float64:
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(k))
		return b[:]
	default:
		return fmt.Appendf(nil, "%#v", key)
	}
}
