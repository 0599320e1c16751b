package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Domain prefix for query fingerprints.
// Version suffix enables future algorithm migration.
const DomainQuery = "qmodel/query/v1"

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

// QueryID computes a stable fingerprint for a query model from its
// canonical rendering. Equal renderings always produce equal IDs.
func QueryID(rendering string) (string, error) {
	canonical, err := MarshalCanonical(IRObject{"model": IRString(rendering)})
	if err != nil {
		return "", fmt.Errorf("QueryID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// MustQueryID is like QueryID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustQueryID(rendering string) string {
	id, err := QueryID(rendering)
	if err != nil {
		panic(err)
	}
	return id
}

// Kind tags for the hash encoding. Ints and integral decimals share a tag
// so that values which compare Equal also hash equal.
const (
	tagNull byte = iota + 1
	tagString
	tagNumber
	tagBool
	tagArray
	tagObject
	tagGrouping
)

// Hash returns a 64-bit hash of v consistent with Equal.
// Used by set operators (Distinct, Union, Intersect, Except) and Group.
func Hash(v IRValue) uint64 {
	d := xxhash.New()
	writeHash(d, v)
	return d.Sum64()
}

func writeHash(d *xxhash.Digest, v IRValue) {
	var scratch [8]byte
	switch val := v.(type) {
	case nil, IRNull:
		d.Write([]byte{tagNull})
	case IRString:
		d.Write([]byte{tagString})
		binary.LittleEndian.PutUint64(scratch[:], uint64(len(val)))
		d.Write(scratch[:])
		d.WriteString(string(val))
	case IRInt:
		d.Write([]byte{tagNumber})
		d.WriteString(fmt.Sprintf("%d", int64(val)))
	case IRDecimal:
		d.Write([]byte{tagNumber})
		// String() drops trailing zeros, so 2.0 and 2 hash alike.
		d.WriteString(val.String())
	case IRBool:
		d.Write([]byte{tagBool})
		if val {
			d.Write([]byte{1})
		} else {
			d.Write([]byte{0})
		}
	case IRArray:
		d.Write([]byte{tagArray})
		binary.LittleEndian.PutUint64(scratch[:], uint64(len(val)))
		d.Write(scratch[:])
		for _, elem := range val {
			writeHash(d, elem)
		}
	case IRObject:
		d.Write([]byte{tagObject})
		binary.LittleEndian.PutUint64(scratch[:], uint64(len(val)))
		d.Write(scratch[:])
		for _, k := range val.SortedKeys() {
			writeHash(d, IRString(k))
			writeHash(d, val[k])
		}
	case IRGrouping:
		d.Write([]byte{tagGrouping})
		writeHash(d, val.Key)
		writeHash(d, val.Elements)
	}
}
