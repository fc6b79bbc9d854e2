// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package capnpwire hand-implements the slice of the Cap'n Proto wire
// format (https://capnproto.org/encoding.html) this project needs: single-
// segment message framing, struct data/pointer sections, text as a byte
// list, and composite (struct) lists for repeated pair records. It does not
// support far pointers, capabilities, or multi-segment messages; those are
// outside what the record schema in use here requires.
package capnpwire

import "encoding/binary"

// pointerKind is the low two bits of every pointer word.
type pointerKind uint8

const (
	kindStruct pointerKind = 0
	kindList   pointerKind = 1
	kindFar    pointerKind = 2
	kindOther  pointerKind = 3
)

// elemSize codes for list pointers, per the Cap'n Proto spec.
const (
	elemSizeVoid      = 0
	elemSizeBit       = 1
	elemSizeByte      = 2
	elemSizeTwoBytes  = 3
	elemSizeFourBytes = 4
	elemSizeEightNP   = 5 // 8 bytes, non-pointer
	elemSizePointer   = 6
	elemSizeComposite = 7
)

// builder accumulates a single Cap'n Proto segment as a flat slice of
// 64-bit words, growing on demand. Word 0 is reserved for the root pointer.
type builder struct {
	words []uint64
}

func newBuilder() *builder {
	// word 0 is the root pointer, filled in once the root struct is known.
	return &builder{words: make([]uint64, 1)}
}

// alloc appends n zero words and returns the word index of the first one.
func (b *builder) alloc(n int) int {
	start := len(b.words)
	b.words = append(b.words, make([]uint64, n)...)

	return start
}

// structPointerWord builds a struct pointer word targeting targetWord, to be
// stored at slotWord.
func structPointerWord(slotWord, targetWord int, dataWords, ptrWords uint16) uint64 {
	offset := int32(targetWord - slotWord - 1)

	return pointerWord(kindStruct, offset) | uint64(dataWords)<<32 | uint64(ptrWords)<<48
}

// listPointerWord builds a list pointer word targeting targetWord.
func listPointerWord(slotWord, targetWord int, elemSize uint8, elemCount uint32) uint64 {
	offset := int32(targetWord - slotWord - 1)

	return pointerWord(kindList, offset) | uint64(elemSize&0x7)<<32 | uint64(elemCount&0x1fffffff)<<35
}

// pointerWord packs kind (2 bits) and a signed 30-bit word offset.
func pointerWord(kind pointerKind, offset int32) uint64 {
	return uint64(kind&0x3) | (uint64(uint32(offset)&0x3fffffff) << 2)
}

// writeStructPointer stores a struct pointer at slotWord.
func (b *builder) writeStructPointer(slotWord, targetWord int, dataWords, ptrWords uint16) {
	b.words[slotWord] = structPointerWord(slotWord, targetWord, dataWords, ptrWords)
}

// writeListPointer stores a list pointer at slotWord.
func (b *builder) writeListPointer(slotWord, targetWord int, elemSize uint8, elemCount uint32) {
	b.words[slotWord] = listPointerWord(slotWord, targetWord, elemSize, elemCount)
}

// writeText allocates a NUL-terminated byte list for s and writes a list
// pointer to it at slotWord.
func (b *builder) writeText(slotWord int, s string) {
	if s == "" {
		b.words[slotWord] = 0
		return
	}

	n := len(s) + 1 // NUL terminator
	wordCount := (n + 7) / 8

	target := b.alloc(wordCount)

	buf := make([]byte, wordCount*8)
	copy(buf, s)

	for i := 0; i < wordCount; i++ {
		b.words[target+i] = binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
	}

	b.writeListPointer(slotWord, target, elemSizeByte, uint32(n))
}

// bytes renders the segment's words as a little-endian byte slice.
func (b *builder) bytes() []byte {
	out := make([]byte, len(b.words)*8)
	for i, w := range b.words {
		binary.LittleEndian.PutUint64(out[i*8:i*8+8], w)
	}

	return out
}

// segment is a single decoded Cap'n Proto segment, viewed as 64-bit words.
type segment struct {
	words []uint64
}

func segmentFromBytes(buf []byte) segment {
	words := make([]uint64, len(buf)/8)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
	}

	return segment{words: words}
}

func (s segment) word(i int) (uint64, bool) {
	if i < 0 || i >= len(s.words) {
		return 0, false
	}

	return s.words[i], true
}

// decodedStructPointer is a resolved struct pointer: the word index of its
// data section and the word/pointer counts.
type decodedStructPointer struct {
	dataWord  int
	dataWords uint16
	ptrWords  uint16
}

// resolveStructPointer reads the struct pointer stored at slotWord and
// resolves it to its target data section.
func resolveStructPointer(s segment, slotWord int) (decodedStructPointer, error) {
	word, ok := s.word(slotWord)
	if !ok {
		return decodedStructPointer{}, ErrFailed
	}

	if word == 0 {
		return decodedStructPointer{}, nil
	}

	kind := pointerKind(word & 0x3)
	if kind != kindStruct {
		if kind == kindFar || kind == kindOther {
			return decodedStructPointer{}, ErrUnimplemented
		}

		return decodedStructPointer{}, ErrFailed
	}

	offset := signExtend30(word >> 2)
	dataWords := uint16(word >> 32)
	ptrWords := uint16(word >> 48)
	target := slotWord + 1 + int(offset)

	if target < 0 || target+int(dataWords)+int(ptrWords) > len(s.words) {
		return decodedStructPointer{}, ErrFailed
	}

	return decodedStructPointer{dataWord: target, dataWords: dataWords, ptrWords: ptrWords}, nil
}

// decodedListPointer is a resolved list pointer.
type decodedListPointer struct {
	contentWord int
	elemSize    uint8
	elemCount   uint32
}

func resolveListPointer(s segment, slotWord int) (decodedListPointer, bool, error) {
	word, ok := s.word(slotWord)
	if !ok {
		return decodedListPointer{}, false, ErrFailed
	}

	if word == 0 {
		return decodedListPointer{}, false, nil
	}

	kind := pointerKind(word & 0x3)
	if kind != kindList {
		if kind == kindFar || kind == kindOther {
			return decodedListPointer{}, false, ErrUnimplemented
		}

		return decodedListPointer{}, false, ErrFailed
	}

	offset := signExtend30(word >> 2)
	elemSize := uint8((word >> 32) & 0x7)
	elemCount := uint32((word >> 35) & 0x1fffffff)
	target := slotWord + 1 + int(offset)

	if target < 0 || target > len(s.words) {
		return decodedListPointer{}, false, ErrFailed
	}

	return decodedListPointer{contentWord: target, elemSize: elemSize, elemCount: elemCount}, true, nil
}

func signExtend30(v uint64) int32 {
	raw := int32(v & 0x3fffffff)
	if raw&0x20000000 != 0 {
		raw -= 0x40000000
	}

	return raw
}

// readText extracts a Text value (byte list, NUL-terminated) given its
// resolved list pointer.
func readText(s segment, lp decodedListPointer) (string, bool, error) {
	if lp.elemSize != elemSizeByte {
		return "", false, ErrFailed
	}

	if lp.elemCount == 0 {
		return "", true, nil
	}

	wordCount := (int(lp.elemCount) + 7) / 8
	if lp.contentWord+wordCount > len(s.words) {
		return "", false, ErrFailed
	}

	buf := make([]byte, wordCount*8)
	for i := 0; i < wordCount; i++ {
		binary.LittleEndian.PutUint64(buf[i*8:i*8+8], s.words[lp.contentWord+i])
	}

	n := int(lp.elemCount) - 1 // drop NUL terminator
	if n < 0 || n > len(buf) {
		return "", false, ErrFailed
	}

	return string(buf[:n]), true, nil
}
