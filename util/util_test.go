// util/util_test.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"slices"
	"testing"
)

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer[int](3)

	if rb.Size() != 0 {
		t.Errorf("empty ring buffer size %d, expected 0", rb.Size())
	}

	rb.Add(1)
	rb.Add(2)
	if rb.Size() != 2 {
		t.Errorf("ring buffer size %d, expected 2", rb.Size())
	}
	if rb.Get(0) != 1 || rb.Get(1) != 2 {
		t.Errorf("ring buffer contents [%d %d], expected [1 2]", rb.Get(0), rb.Get(1))
	}

	// Fill past capacity; the oldest entries fall off.
	rb.Add(3, 4, 5)
	if rb.Size() != 3 {
		t.Errorf("ring buffer size %d, expected 3", rb.Size())
	}
	for i, expected := range []int{3, 4, 5} {
		if rb.Get(i) != expected {
			t.Errorf("ring buffer entry %d is %d, expected %d", i, rb.Get(i), expected)
		}
	}
}

func TestSelect(t *testing.T) {
	if Select(true, 1, 2) != 1 {
		t.Errorf("Select(true, 1, 2) != 1")
	}
	if Select(false, 1, 2) != 2 {
		t.Errorf("Select(false, 1, 2) != 2")
	}
	if Select(true, "a", "b") != "a" {
		t.Errorf("Select(true, \"a\", \"b\") != \"a\"")
	}
}

func TestDeltaEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		input []int64
	}{
		{name: "empty", input: []int64{}},
		{name: "single value", input: []int64{42}},
		{name: "ascending timestamps", input: []int64{1000, 1250, 1500, 1750}},
		{name: "constant values", input: []int64{10, 10, 10, 10}},
		{name: "mixed", input: []int64{100, 50, 75, 200, 150}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := DeltaEncode(tt.input)
			decoded := DeltaDecode(encoded)

			if len(tt.input) == 0 {
				if decoded != nil {
					t.Errorf("DeltaDecode(DeltaEncode(empty)) = %v, want nil", decoded)
				}
				return
			}
			if !slices.Equal(decoded, tt.input) {
				t.Errorf("DeltaDecode(DeltaEncode(%v)) = %v, want %v", tt.input, decoded, tt.input)
			}
		})
	}
}

func TestDeltaEncodeDecodeBytesSlice(t *testing.T) {
	data := [][]byte{
		{1, 2, 3, 4},
		{1, 2, 3, 5},
		{1, 2, 4, 5, 6},
		{9},
	}

	encoded := DeltaEncodeBytesSlice(data)
	decoded := DeltaDecodeBytesSlice(encoded)

	if len(decoded) != len(data) {
		t.Fatalf("decoded %d slices, expected %d", len(decoded), len(data))
	}
	for i := range data {
		if !slices.Equal(decoded[i], data[i]) {
			t.Errorf("slice %d: got %v, expected %v", i, decoded[i], data[i])
		}
	}
}
