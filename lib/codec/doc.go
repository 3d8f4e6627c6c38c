// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides demul's CBOR encoding configuration.
//
// Trace files are CBOR sequences (RFC 8742). Every package that writes
// or reads them goes through this package so the encoding options live
// in one place. The encoder uses Core Deterministic Encoding: the same
// record always produces the same bytes.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For streams:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
package codec
