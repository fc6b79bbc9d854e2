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

package capnpwire

import (
	"bytes"
	"io"
	"math"

	"github.com/cdumay/flowgger/internal/errkind"
	"github.com/cdumay/flowgger/internal/record"
)

// Record struct layout: data section is 2 words (ts float64; facility/severity
// packed into the low two bytes of the second word), pointer section holds 9
// pointers in schema field order.
const (
	recordDataWords = 2
	recordPtrWords  = 9

	ptrHostname = 0
	ptrAppname  = 1
	ptrProcid   = 2
	ptrMsgid    = 3
	ptrMsg      = 4
	ptrFullMsg  = 5
	ptrSDID     = 6
	ptrPairs    = 7
	ptrExtra    = 8
)

// Pair struct layout: data section is 4 words (discriminant+bool packed into
// word 0, f64/i64/u64 each in their own word), pointer section holds the key
// and the string-variant value.
const (
	pairDataWords = 4
	pairPtrWords  = 2

	pairPtrKey         = 0
	pairPtrStringValue = 1
)

// Pair value discriminants, stored in the low 16 bits of data word 0.
const (
	discString uint16 = iota
	discBool
	discF64
	discI64
	discU64
	discNull
)

// EncodeRecord serializes rec as a single-segment, framed Cap'n Proto
// message, schema-equivalent to the ingress `record` struct.
func EncodeRecord(rec *record.Record) ([]byte, error) {
	b := newBuilder()

	rootData := b.alloc(recordDataWords + recordPtrWords)
	ptrBase := rootData + recordDataWords

	b.words[rootData] = math.Float64bits(rec.Ts)

	var fsWord uint64
	if rec.Facility != nil {
		fsWord |= uint64(*rec.Facility)
	}

	if rec.Severity != nil {
		fsWord |= uint64(*rec.Severity) << 8
	}

	b.words[rootData+1] = fsWord

	b.writeText(ptrBase+ptrHostname, rec.Hostname)
	writeOptionalText(b, ptrBase+ptrAppname, rec.Appname)
	writeOptionalText(b, ptrBase+ptrProcid, rec.Procid)
	writeOptionalText(b, ptrBase+ptrMsgid, rec.Msgid)
	writeOptionalText(b, ptrBase+ptrMsg, rec.Msg)
	writeOptionalText(b, ptrBase+ptrFullMsg, rec.FullMsg)

	if rec.SD != nil {
		writeOptionalText(b, ptrBase+ptrSDID, rec.SD.SDID)
		writePairsList(b, ptrBase+ptrPairs, rec.SD.Pairs)
	}

	b.writeStructPointer(0, rootData, recordDataWords, recordPtrWords)

	return frameMessage(b.words), nil
}

func writeOptionalText(b *builder, slot int, s *string) {
	if s == nil {
		b.words[slot] = 0
		return
	}

	b.writeText(slot, *s)
}

// writePairsList encodes pairs as a composite list of Pair structs, and
// writes the list pointer at slot.
func writePairsList(b *builder, slot int, pairs []record.Pair) {
	if len(pairs) == 0 {
		b.words[slot] = 0
		return
	}

	perElem := pairDataWords + pairPtrWords
	tag := b.alloc(1 + len(pairs)*perElem)

	b.words[tag] = uint64(len(pairs))<<2 | uint64(pairDataWords)<<32 | uint64(pairPtrWords)<<48

	for i, p := range pairs {
		elem := tag + 1 + i*perElem
		writePairElement(b, elem, p)
	}

	b.writeListPointer(slot, tag, elemSizeComposite, uint32(len(pairs)*perElem))
}

func writePairElement(b *builder, elem int, p record.Pair) {
	var word0 uint64

	switch p.Value.Kind {
	case record.SDString:
		word0 = uint64(discString)
	case record.SDBool:
		word0 = uint64(discBool)
		if p.Value.Bool() {
			word0 |= 1 << 16
		}
	case record.SDF64:
		word0 = uint64(discF64)
	case record.SDI64:
		word0 = uint64(discI64)
	case record.SDU64:
		word0 = uint64(discU64)
	case record.SDNull:
		word0 = uint64(discNull)
	}

	b.words[elem] = word0
	b.words[elem+1] = math.Float64bits(p.Value.F64())
	b.words[elem+2] = uint64(p.Value.I64())
	b.words[elem+3] = p.Value.U64()

	b.writeText(elem+pairDataWords+pairPtrKey, p.Name)

	if p.Value.Kind == record.SDString {
		b.writeText(elem+pairDataWords+pairPtrStringValue, p.Value.String())
	}
}

// DecodeSegmentRecord parses the root `record` struct out of a decoded
// segment.
func DecodeSegmentRecord(s segment) (*record.Record, error) {
	root, err := resolveStructPointer(s, 0)
	if err != nil {
		return nil, err
	}

	if root.dataWords == 0 && root.ptrWords == 0 {
		return nil, errkind.New(errkind.Decode, "Missing timestamp")
	}

	ts, ok := s.word(root.dataWord)
	if !ok {
		return nil, ErrFailed
	}

	tsVal := math.Float64frombits(ts)
	if !record.ValidTs(tsVal) {
		return nil, errkind.New(errkind.Decode, "Missing timestamp")
	}

	var fsWord uint64
	if root.dataWords > 1 {
		fsWord, _ = s.word(root.dataWord + 1)
	}

	facility := uint8(fsWord)
	severity := uint8(fsWord >> 8)

	ptrBase := root.dataWord + int(root.dataWords)

	hostname, hostnameSet, err := readOptionalText(s, ptrBase, ptrHostname, root.ptrWords)
	if err != nil {
		return nil, err
	}

	if !hostnameSet || hostname == "" {
		return nil, errkind.New(errkind.Decode, "Missing host name")
	}

	appname, err := readOptionalTextPtr(s, ptrBase, ptrAppname, root.ptrWords)
	if err != nil {
		return nil, err
	}

	procid, err := readOptionalTextPtr(s, ptrBase, ptrProcid, root.ptrWords)
	if err != nil {
		return nil, err
	}

	msgid, err := readOptionalTextPtr(s, ptrBase, ptrMsgid, root.ptrWords)
	if err != nil {
		return nil, err
	}

	msg, err := readOptionalTextPtr(s, ptrBase, ptrMsg, root.ptrWords)
	if err != nil {
		return nil, err
	}

	fullMsg, err := readOptionalTextPtr(s, ptrBase, ptrFullMsg, root.ptrWords)
	if err != nil {
		return nil, err
	}

	sd, err := readSD(s, ptrBase, root.ptrWords)
	if err != nil {
		return nil, err
	}

	return &record.Record{
		Ts:       tsVal,
		Hostname: hostname,
		Facility: record.ClampFacility(facility),
		Severity: record.ClampSeverity(severity),
		Appname:  appname,
		Procid:   procid,
		Msgid:    msgid,
		Msg:      msg,
		FullMsg:  fullMsg,
		SD:       sd,
	}, nil
}

func readOptionalText(s segment, ptrBase, idx int, ptrWords uint16) (string, bool, error) {
	if idx >= int(ptrWords) {
		return "", false, nil
	}

	lp, present, err := resolveListPointer(s, ptrBase+idx)
	if err != nil {
		return "", false, err
	}

	if !present {
		return "", false, nil
	}

	str, ok, err := readText(s, lp)
	return str, ok, err
}

func readOptionalTextPtr(s segment, ptrBase, idx int, ptrWords uint16) (*string, error) {
	str, ok, err := readOptionalText(s, ptrBase, idx, ptrWords)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, nil
	}

	return &str, nil
}

func readSD(s segment, ptrBase int, ptrWords uint16) (*record.StructuredData, error) {
	sdID, err := readOptionalTextPtr(s, ptrBase, ptrSDID, ptrWords)
	if err != nil {
		return nil, err
	}

	pairsPresent, pairs, err := readPairsList(s, ptrBase, ptrPairs, ptrWords, true)
	if err != nil {
		return nil, err
	}

	extraPresent, extra, err := readPairsList(s, ptrBase, ptrExtra, ptrWords, false)
	if err != nil {
		return nil, err
	}

	if !pairsPresent && !extraPresent {
		if sdID == nil {
			return nil, nil
		}

		return &record.StructuredData{SDID: sdID}, nil
	}

	return &record.StructuredData{SDID: sdID, Pairs: append(pairs, extra...)}, nil
}

// readPairsList decodes a composite list of Pair structs. When
// underscorePrefix is true (the "pairs" field), names get a leading
// underscore added if absent; the "extra" field carries names unmodified
// and only its String-variant values are kept, matching the original
// splitter's asymmetric handling of the two fields.
func readPairsList(s segment, ptrBase, idx int, ptrWords uint16, underscorePrefix bool) (present bool, pairs []record.Pair, err error) {
	if idx >= int(ptrWords) {
		return false, nil, nil
	}

	lp, ok, err := resolveListPointer(s, ptrBase+idx)
	if err != nil {
		return false, nil, err
	}

	if !ok {
		return false, nil, nil
	}

	if lp.elemSize != elemSizeComposite {
		return false, nil, ErrFailed
	}

	if lp.elemCount == 0 {
		return true, nil, nil
	}

	tagWord, okw := s.word(lp.contentWord)
	if !okw {
		return false, nil, ErrFailed
	}

	elemCount := int(int32(tagWord>>2) & 0x3fffffff)
	dataWords := uint16(tagWord >> 32)
	ptrWordsPerElem := uint16(tagWord >> 48)
	perElem := int(dataWords) + int(ptrWordsPerElem)

	out := make([]record.Pair, 0, elemCount)

	for i := 0; i < elemCount; i++ {
		elem := lp.contentWord + 1 + i*perElem

		p, ok, err := readPairElement(s, elem, dataWords, ptrWordsPerElem, underscorePrefix)
		if err != nil {
			return false, nil, err
		}

		if ok {
			out = append(out, p)
		}
	}

	return true, out, nil
}

func readPairElement(s segment, elem int, dataWords, ptrWords uint16, underscorePrefix bool) (record.Pair, bool, error) {
	word0, ok := s.word(elem)
	if !ok {
		return record.Pair{}, false, ErrFailed
	}

	name, present, err := readOptionalText(s, elem+int(dataWords), pairPtrKey, ptrWords)
	if err != nil {
		return record.Pair{}, false, err
	}

	if !present {
		return record.Pair{}, false, nil
	}

	if underscorePrefix {
		name = record.EnsureUnderscore(name)
	}

	disc := uint16(word0)

	switch disc {
	case discString:
		str, ok, err := readOptionalText(s, elem+int(dataWords), pairPtrStringValue, ptrWords)
		if err != nil {
			return record.Pair{}, false, err
		}

		if !ok {
			return record.Pair{}, false, nil
		}

		return record.Pair{Name: name, Value: record.NewSDString(str)}, true, nil

	case discBool:
		if !underscorePrefix {
			return record.Pair{}, false, nil
		}

		return record.Pair{Name: name, Value: record.NewSDBool(word0&(1<<16) != 0)}, true, nil

	case discF64:
		if !underscorePrefix {
			return record.Pair{}, false, nil
		}

		f64w, _ := s.word(elem + 1)

		return record.Pair{Name: name, Value: record.NewSDF64(math.Float64frombits(f64w))}, true, nil

	case discI64:
		if !underscorePrefix {
			return record.Pair{}, false, nil
		}

		i64w, _ := s.word(elem + 2)

		return record.Pair{Name: name, Value: record.NewSDI64(int64(i64w))}, true, nil

	case discU64:
		if !underscorePrefix {
			return record.Pair{}, false, nil
		}

		u64w, _ := s.word(elem + 3)

		return record.Pair{Name: name, Value: record.NewSDU64(u64w)}, true, nil

	case discNull:
		if !underscorePrefix {
			return record.Pair{}, false, nil
		}

		return record.Pair{Name: name, Value: record.NewSDNull()}, true, nil

	default:
		return record.Pair{}, false, nil
	}
}

// ReadMessage reads one framed message from r and decodes its root record.
// This is the entry point the Cap'n Proto splitter uses: framing and
// decoding happen together, matching the original splitter's inline decode.
func ReadMessage(r io.Reader) (*record.Record, error) {
	seg, err := readMessageBytes(r)
	if err != nil {
		return nil, err
	}

	return DecodeSegmentRecord(seg)
}

// DecodeMessage decodes an already-buffered, fully framed message, for the
// "capnp" Decoder variant when framing was performed by something other
// than the Cap'n Proto splitter itself.
func DecodeMessage(buf []byte) (*record.Record, error) {
	seg, err := readMessageBytes(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}

	return DecodeSegmentRecord(seg)
}
