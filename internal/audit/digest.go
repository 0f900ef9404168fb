package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"strings"
)

// #region digest
// Digest computes the chain hash over canonical record content. Which digest
// to run is a policy choice, not an implementation detail: fnv64 keeps the
// decision path cheap but is not tamper-resistant against a motivated
// adversary; sha256 buys collision resistance at higher cost.
type Digest interface {
	// Sum returns the hex digest of the canonical record content.
	Sum(content string) string
	// Genesis returns the all-zero sentinel matching the digest width.
	Genesis() string
	// Name returns the identifier used in configuration.
	Name() string
}

type fnvDigest struct{}

func (fnvDigest) Sum(content string) string {
	h := fnv.New64a()
	h.Write([]byte(content))
	return fmt.Sprintf("%016x", h.Sum64())
}

func (fnvDigest) Genesis() string { return strings.Repeat("0", 16) }
func (fnvDigest) Name() string    { return "fnv64" }

type shaDigest struct{}

func (shaDigest) Sum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func (shaDigest) Genesis() string { return strings.Repeat("0", 64) }
func (shaDigest) Name() string    { return "sha256" }

// FNV64 returns the default fast digest.
func FNV64() Digest { return fnvDigest{} }

// SHA256 returns the collision-resistant digest.
func SHA256() Digest { return shaDigest{} }

// ParseDigest resolves a configured digest name; the empty string selects
// the default.
func ParseDigest(name string) (Digest, error) {
	switch name {
	case "", "fnv64":
		return fnvDigest{}, nil
	case "sha256":
		return shaDigest{}, nil
	default:
		return nil, fmt.Errorf("unknown audit digest %q", name)
	}
}

// #endregion digest
