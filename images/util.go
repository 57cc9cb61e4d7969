package images

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"gocv.io/x/gocv"
)

// ComputeMatChecksum generates a deterministic checksum of a frame's pixels.
//
// Two frames with the same geometry, type and pixel bytes always produce the
// same checksum, which makes it a cheap way to assert that annotation is
// reproducible or that a frame passed through untouched.
//
// Arguments:
//   - mat: The frame to hash.
//
// Returns:
//   - string: Hex-encoded SHA-256 of the geometry header and pixel bytes, or "empty".
func ComputeMatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	hash := sha256.New()
	hash.Write([]byte{byte(mat.Type()), byte(mat.Channels())})
	hash.Write(intBytes(mat.Cols()))
	hash.Write(intBytes(mat.Rows()))
	hash.Write(mat.ToBytes())
	return hex.EncodeToString(hash.Sum(nil))
}

// SamePixels reports whether two frames have identical geometry and pixel bytes.
func SamePixels(a, b gocv.Mat) bool {
	if a.Cols() != b.Cols() || a.Rows() != b.Rows() || a.Type() != b.Type() {
		return false
	}
	return bytes.Equal(a.ToBytes(), b.ToBytes())
}

func intBytes(v int) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
