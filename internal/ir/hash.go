package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash domains. Bump the version when the canonical form changes.
const (
	DomainJoinSpec = "framejoin/joinspec/v1"
	DomainTable    = "framejoin/table/v1"
)

// contentHash is hex(SHA-256(domain || 0x00 || canonical(v))).
func contentHash(domain string, v any) (string, error) {
	canonical, err := CanonicalOf(v)
	if err != nil {
		return "", fmt.Errorf("%s: canonical form: %w", domain, err)
	}
	sum := sha256.New()
	sum.Write([]byte(domain))
	sum.Write([]byte{0})
	sum.Write(canonical)
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// SpecHash identifies a join configuration by content. The name does not
// take part, so renamed copies of one join share a cache entry.
func SpecHash(spec JoinSpec) (string, error) {
	anon := spec.Normalized()
	anon.Name = ""
	return contentHash(DomainJoinSpec, anon)
}

// TableHash identifies a synthesized table by content.
func TableHash(tt *Table) (string, error) {
	return contentHash(DomainTable, tt)
}

// MustSpecHash panics where SpecHash would fail.
func MustSpecHash(spec JoinSpec) string { return must(SpecHash(spec)) }

// MustTableHash panics where TableHash would fail.
func MustTableHash(tt *Table) string { return must(TableHash(tt)) }

func must(h string, err error) string {
	if err != nil {
		panic(err)
	}
	return h
}
