package object

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature is the {name, email, timestamp, tz} triple used for both the
// author and committer fields of a commit, and the tagger field of an
// annotated tag.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Decode parses a "Name <email> 1234567890 +0000" signature line.
func DecodeSignature(line string) (Signature, error) {
	lt := strings.LastIndexByte(line, '<')
	gt := strings.LastIndexByte(line, '>')
	if lt < 0 || gt < 0 || gt < lt {
		return Signature{}, fmt.Errorf("gitcore: malformed signature %q", line)
	}
	name := strings.TrimSpace(line[:lt])
	email := line[lt+1 : gt]
	rest := strings.TrimSpace(line[gt+1:])
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return Signature{}, fmt.Errorf("gitcore: malformed signature timestamp %q", rest)
	}
	sec, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("gitcore: malformed signature timestamp %q: %w", fields[0], err)
	}
	loc, err := parseTZ(fields[1])
	if err != nil {
		return Signature{}, err
	}
	return Signature{Name: name, Email: email, When: time.Unix(sec, 0).In(loc)}, nil
}

// Encode renders the signature in its on-disk form. The negation of the
// offset's usual meaning is NOT applied here: Go's time.Zone already
// returns the offset in the Git convention (seconds east of UTC,
// rendered with its own sign), so the sign followed by %02d%02d hours
// and minutes falls out directly; zero renders "+0000".
func (s Signature) Encode() string {
	_, offset := s.When.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hh := offset / 3600
	mm := (offset % 3600) / 60
	return fmt.Sprintf("%s <%s> %d %s%02d%02d", s.Name, s.Email, s.When.Unix(), sign, hh, mm)
}

func parseTZ(tz string) (*time.Location, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return nil, fmt.Errorf("gitcore: malformed tz offset %q", tz)
	}
	hh, err := strconv.Atoi(tz[1:3])
	if err != nil {
		return nil, err
	}
	mm, err := strconv.Atoi(tz[3:5])
	if err != nil {
		return nil, err
	}
	secs := hh*3600 + mm*60
	if tz[0] == '-' {
		secs = -secs
	}
	return time.FixedZone(tz, secs), nil
}

// NewSignature builds a Signature from name/email/time in a specific
// offset expressed in minutes east of UTC.
func NewSignature(name, email string, sec int64, tzOffsetMin int) Signature {
	loc := time.FixedZone(fmt.Sprintf("%+03d%02d", tzOffsetMin/60, abs(tzOffsetMin%60)), tzOffsetMin*60)
	return Signature{Name: name, Email: email, When: time.Unix(sec, 0).In(loc)}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// indentGPGSig prefixes every continuation line of a gpgsig field value
// with a single leading space, per Git convention.
func indentGPGSig(sig string) string {
	lines := strings.Split(strings.TrimRight(sig, "\n"), "\n")
	var buf bytes.Buffer
	for i, l := range lines {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return strings.TrimRight(buf.String(), "\n")
}

// dedentGPGSig reverses indentGPGSig when parsing a commit/tag header.
func dedentGPGSig(lines []string) string {
	var buf bytes.Buffer
	for i, l := range lines {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.TrimPrefix(l, " "))
	}
	return buf.String()
}
