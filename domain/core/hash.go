package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ComputeMatrixFingerprint hashes a case matrix independent of map order.
// Rows are hashed in the given order; variables are listed explicitly.
func ComputeMatrixFingerprint(caseIDs []string, variables []string, value func(row int, variable string) int) Hash {
	vars := append([]string(nil), variables...)
	sort.Strings(vars)

	var data strings.Builder
	data.WriteString(strings.Join(vars, ","))
	data.WriteByte('\n')
	for i, id := range caseIDs {
		data.WriteString(id)
		for _, v := range vars {
			data.WriteString(fmt.Sprintf("|%d", value(i, v)))
		}
		data.WriteByte('\n')
	}
	return NewHash([]byte(data.String()))
}
