package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix leaves room for
// an algorithm change without colliding with old hashes.
const (
	DomainTree     = "sched2bt/tree/v1"
	DomainArtifact = "sched2bt/artifact/v1"
	DomainFact     = "sched2bt/fact/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as lower-case hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TreeHash returns the content hash of a behavior description object.
func TreeHash(desc Object) (string, error) {
	canonical, err := MarshalCanonical(desc)
	if err != nil {
		return "", fmt.Errorf("TreeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTree, canonical), nil
}

// ArtifactHash returns the content hash of a rendered text artifact.
// kind separates domain text from problem text with identical bytes.
func ArtifactHash(kind string, data []byte) string {
	return hashWithDomain(DomainArtifact+"/"+kind, data)
}

// FactHash returns the identity of a ground fact. Used as the knowledge
// base primary key.
func FactHash(f Fact) (string, error) {
	canonical, err := MarshalCanonical(FactObject(f))
	if err != nil {
		return "", fmt.Errorf("FactHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFact, canonical), nil
}

// MustTreeHash is like TreeHash but panics on error.
// Use only in tests or when the description is known to be valid.
func MustTreeHash(desc Object) string {
	h, err := TreeHash(desc)
	if err != nil {
		panic(err)
	}
	return h
}
