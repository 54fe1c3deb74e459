package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix enables future algorithm migration.
const (
	DomainDeclaration = "ecsgen/declaration/v1"
	DomainFact        = "ecsgen/fact/v1"
	DomainProjection  = "ecsgen/projection/v1"
	DomainUnit        = "ecsgen/unit/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func hashCanonical(domain string, obj IRObject) (string, error) {
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", err
	}
	return hashWithDomain(domain, canonical), nil
}

// DeclarationHash content-addresses a host declaration. Two declarations with
// the same syntax and the same resolved attribute types hash identically.
func DeclarationHash(d Declaration) (string, error) {
	h, err := hashCanonical(DomainDeclaration, d.Canonical())
	if err != nil {
		return "", fmt.Errorf("DeclarationHash: %w", err)
	}
	return h, nil
}

// FactHash content-addresses a fact. It agrees with the fact's Equal method.
func FactHash(f Fact) (string, error) {
	obj := f.Canonical()
	obj["category"] = IRString(f.Category().String())
	h, err := hashCanonical(DomainFact, obj)
	if err != nil {
		return "", fmt.Errorf("FactHash: %w", err)
	}
	return h, nil
}

// ProjectionHash hashes a comparer projection of an extended fact.
func ProjectionHash(projection IRObject) (string, error) {
	h, err := hashCanonical(DomainProjection, projection)
	if err != nil {
		return "", fmt.Errorf("ProjectionHash: %w", err)
	}
	return h, nil
}

// ContentHash hashes generated unit text.
func ContentHash(text string) string {
	return hashWithDomain(DomainUnit, []byte(text))
}

// MustFactHash is like FactHash but panics on error.
// Use only in tests or when the fact is known to be well formed.
func MustFactHash(f Fact) string {
	h, err := FactHash(f)
	if err != nil {
		panic(err)
	}
	return h
}
