package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainMetadata = "simtree/metadata/v1"
	DomainSnapshot = "simtree/snapshot/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MetadataKey computes the hash of a record type's static metadata tuple.
// Two tuples with equal canonical encodings share a key; in particular host
// arrays hash by byte content, dtype and shape.
// Returns an UNSUPPORTED_FIELD_TYPE error if a value has no canonical form.
func MetadataKey(recordName string, values []Value) (string, error) {
	canonical, err := MarshalCanonical(List{String(recordName), List(values)})
	if err != nil {
		return "", fmt.Errorf("metadata key %s: %w", recordName, err)
	}
	return hashWithDomain(DomainMetadata, canonical), nil
}

// ContentHash computes a domain-separated hash of arbitrary bytes.
func ContentHash(domain string, data []byte) string {
	return hashWithDomain(domain, data)
}

// MustMetadataKey is like MetadataKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustMetadataKey(recordName string, values []Value) string {
	key, err := MetadataKey(recordName, values)
	if err != nil {
		panic(err)
	}
	return key
}
