// Package frameid provides a deterministic cache key for frame contents.
package frameid

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

const prefix = "frame:"

// Key returns a stable key for a frame of the given size and pixel data.
// Identical contents always yield the same key, regardless of frame ID.
func Key(width, height int, pixels []float32) string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(width))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(height))
	h.Write(buf[:])
	for _, p := range pixels {
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p))
		h.Write(buf[0:4])
	}
	return prefix + hex.EncodeToString(h.Sum(nil))
}

// Seed folds a key into a non-negative integer, for deterministic test embedders.
func Seed(key string) int {
	h := 0
	for _, c := range key {
		h = 31*h + int(c)
	}
	return h & math.MaxInt
}
