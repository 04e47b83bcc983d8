// Package hashutil provides short string digests.
package hashutil

import (
	"crypto/md5"  // #nosec G501 - non-cryptographic fingerprinting only
	"crypto/sha1" // #nosec G505 - non-cryptographic fingerprinting only
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
)

// HashString hashes s with the named algorithm and returns the first length
// hex characters. Supported algorithms: sha256 (default when empty), sha1,
// sha512, md5. A non-positive length returns the full digest.
func HashString(s, algo string, length int) (string, error) {
	var h hash.Hash
	switch algo {
	case "", "sha256":
		h = sha256.New()
	case "sha1":
		h = sha1.New() // #nosec G401
	case "sha512":
		h = sha512.New()
	case "md5":
		h = md5.New() // #nosec G401
	default:
		return "", fmt.Errorf("hashutil: unsupported algorithm %q", algo)
	}

	h.Write([]byte(s))
	digest := hex.EncodeToString(h.Sum(nil))
	if length > 0 && length < len(digest) {
		digest = digest[:length]
	}
	return digest, nil
}
