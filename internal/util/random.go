// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"crypto/rand"
	"math/big"
)

const randomAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomID returns a random lowercase alphanumeric string of length n,
// suitable for collision-resistant storage key suffixes.
func RandomID(n int) string {
	b := make([]byte, n)
	maxIdx := big.NewInt(int64(len(randomAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, maxIdx)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken
			panic(err)
		}
		b[i] = randomAlphabet[idx.Int64()]
	}
	return string(b)
}
