package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainQuery  = "livesync/query/v1"
	DomainRecord = "livesync/record/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// QueryKey computes the structural identity of a query descriptor.
// Two descriptors with equal canonical encodings produce the same key.
func QueryKey(descriptor Object) (string, error) {
	canonical, err := MarshalCanonical(descriptor)
	if err != nil {
		return "", fmt.Errorf("QueryKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// RecordDigest computes a content digest for change detection.
// Null fields are dropped before hashing, so {"a": null} and {} agree.
func RecordDigest(record Object) (string, error) {
	canonical, err := MarshalCanonical(stripNulls(record))
	if err != nil {
		return "", fmt.Errorf("RecordDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

func stripNulls(v Value) Value {
	switch val := v.(type) {
	case Object:
		out := make(Object, len(val))
		for k, elem := range val {
			if _, isNull := elem.(Null); isNull || elem == nil {
				continue
			}
			out[k] = stripNulls(elem)
		}
		return out
	case Array:
		out := make(Array, 0, len(val))
		for _, elem := range val {
			if _, isNull := elem.(Null); isNull || elem == nil {
				continue
			}
			out = append(out, stripNulls(elem))
		}
		return out
	default:
		return v
	}
}

// MustQueryKey is like QueryKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustQueryKey(descriptor Object) string {
	key, err := QueryKey(descriptor)
	if err != nil {
		panic(err)
	}
	return key
}

// MustRecordDigest is like RecordDigest but panics on error.
func MustRecordDigest(record Object) string {
	d, err := RecordDigest(record)
	if err != nil {
		panic(err)
	}
	return d
}
