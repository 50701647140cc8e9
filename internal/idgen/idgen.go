// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DeepRecall Authors

// Package idgen produces entity identifiers for the replication engine.
//
// Two id families exist. Deterministic ids are content-derived: hashing the
// same semantic fields always yields the same id, so a local insert and a
// later server-confirmed row agree on identity even when a retried upload
// actually succeeded the first time. Random ids cover entity types without a
// natural semantic key (authors); they guarantee uniqueness only, and callers
// are expected to run find-or-create dedup at the service layer.
package idgen

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/google/uuid"
)

// Deterministic derives a stable id from the entity kind and its semantic
// fields. The kind and every part are length-separated before hashing so that
// ("a", "bc") and ("ab", "c") never collide.
func Deterministic(kind string, parts ...string) string {
	h := sha256.New()
	writeLenPrefixed(h, kind)
	for _, p := range parts {
		writeLenPrefixed(h, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeLenPrefixed(w io.Writer, s string) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
	w.Write(lenBuf[:])
	io.WriteString(w, s)
}

// Random returns a time-ordered unique id for entity types without a natural
// semantic key. Falls back to a v4 UUID if v7 generation fails.
func Random() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
