// Package nmea decodes NMEA-0183 sentences into a fused position model.
//
// The decoder is an explicit accumulator: successive sentences of one decode
// cycle each contribute the fields they carry, and for every field the last
// non-default value wins. State only resets on an explicit Reset.
package nmea

import (
	"fmt"
	"strconv"
	"strings"
)

// Sentence is a checksum-verified NMEA sentence split into its comma fields.
// Fields[0] is the address field (talker+type), matching raw field numbering.
type Sentence struct {
	Talker string
	Type   string
	Fields []string
}

// Checksum is the XOR of every payload byte between '$' and '*'.
func Checksum(payload string) byte {
	var ck byte
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return ck
}

// AppendChecksum wraps a payload into a complete sentence.
func AppendChecksum(payload string) string {
	return fmt.Sprintf("$%s*%02X", payload, Checksum(payload))
}

// Split validates and splits one sentence.
//
// The leading '$' is optional, as is the trailing "*HH" checksum; when a
// checksum is present it must match or the sentence is rejected.
func Split(line string) (Sentence, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Sentence{}, fmt.Errorf("nmea: empty line")
	}
	if strings.HasPrefix(line, "$") {
		line = line[1:]
	}

	if star := strings.LastIndexByte(line, '*'); star != -1 {
		ck := strings.TrimSpace(line[star+1:])
		if len(ck) < 2 {
			return Sentence{}, fmt.Errorf("nmea: short checksum")
		}
		want, err := strconv.ParseUint(ck[:2], 16, 8)
		if err != nil {
			return Sentence{}, fmt.Errorf("nmea: bad checksum digits")
		}
		payload := line[:star]
		if Checksum(payload) != byte(want) {
			return Sentence{}, fmt.Errorf("nmea: checksum mismatch")
		}
		line = payload
	}

	fields := strings.Split(line, ",")
	addr := fields[0]
	if len(addr) < 5 {
		return Sentence{}, fmt.Errorf("nmea: short address field %q", addr)
	}
	return Sentence{
		Talker: strings.ToUpper(addr[:2]),
		Type:   strings.ToUpper(addr[len(addr)-3:]),
		Fields: fields,
	}, nil
}

func parseFloatField(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseIntField(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
