// Package partition reads and edits the text dumps produced by `sfdisk -d`.
// It never interprets partition types; applying a table is left to sfdisk.
package partition

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultSectorSize is used when a dump carries no sector-size header.
const DefaultSectorSize = 512

var (
	startRe = regexp.MustCompile(`\bstart=(\s*)(\d+)`)
	sizeRe  = regexp.MustCompile(`\bsize=(\s*)(\d+)`)
	typeRe  = regexp.MustCompile(`\btype=\s*([^,\s]+)`)
)

// extendedTypes are the DOS ids of extended partition containers.
var extendedTypes = map[string]bool{"5": true, "f": true, "85": true}

// Entry is one partition line of a dump.
type Entry struct {
	Line   int
	Device string
	Start  uint64
	Size   uint64
	Type   string
}

// Extended reports a DOS extended partition container.
func (e Entry) Extended() bool {
	return extendedTypes[strings.ToLower(e.Type)]
}

// End is the first sector after the partition.
func (e Entry) End() uint64 {
	return e.Start + e.Size
}

// Table is a parsed dump. The original lines are kept so edits touch a single
// field and everything else round-trips byte for byte.
type Table struct {
	Header  map[string]string
	Entries []Entry

	lines []string
}

// Parse .
func Parse(dump string) (*Table, error) {
	t := &Table{
		Header: map[string]string{},
		lines:  strings.Split(dump, "\n"),
	}

	for i, line := range t.lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		startM := startRe.FindStringSubmatch(line)
		sizeM := sizeRe.FindStringSubmatch(line)
		if startM == nil || sizeM == nil {
			if key, val, ok := strings.Cut(trimmed, ":"); ok && !strings.Contains(key, " ") {
				t.Header[key] = strings.TrimSpace(val)
			}
			continue
		}

		start, err := strconv.ParseUint(startM[2], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad start", i+1)
		}
		size, err := strconv.ParseUint(sizeM[2], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad size", i+1)
		}

		var typ string
		if m := typeRe.FindStringSubmatch(line); m != nil {
			typ = m[1]
		}

		dev, _, _ := strings.Cut(trimmed, ":")
		t.Entries = append(t.Entries, Entry{
			Line:   i,
			Device: strings.TrimSpace(dev),
			Start:  start,
			Size:   size,
			Type:   typ,
		})
	}

	if len(t.Entries) < 1 {
		return nil, errors.New("no partitions found in sfdisk dump")
	}
	return t, nil
}

// Label is the table type, "dos" or "gpt".
func (t *Table) Label() string {
	return t.Header["label"]
}

// SectorSize .
func (t *Table) SectorSize() uint64 {
	if v, err := strconv.ParseUint(t.Header["sector-size"], 10, 64); err == nil && v > 0 {
		return v
	}
	return DefaultSectorSize
}

// Last returns the partition that starts furthest into the disk.
func (t *Table) Last() (Entry, bool) {
	if len(t.Entries) < 1 {
		return Entry{}, false
	}
	last := t.Entries[0]
	for _, e := range t.Entries[1:] {
		if e.Start > last.Start {
			last = e
		}
	}
	return last, true
}

// End is the number of sectors needed to hold every partition.
func (t *Table) End() uint64 {
	var end uint64
	for _, e := range t.Entries {
		if e.End() > end {
			end = e.End()
		}
	}
	return end
}

// HasExtended reports whether the table uses DOS logical partitions.
func (t *Table) HasExtended() bool {
	for _, e := range t.Entries {
		if e.Extended() {
			return true
		}
	}
	return false
}

// String .
func (t *Table) String() string {
	return strings.Join(t.lines, "\n")
}

// setSize rewrites the size= value of entry idx, keeping the column width when
// the new number fits in it.
func (t *Table) setSize(idx int, size uint64) {
	e := &t.Entries[idx]
	line := t.lines[e.Line]
	loc := sizeRe.FindStringSubmatchIndex(line)

	field := line[loc[2]:loc[5]] // padding + digits
	digits := strconv.FormatUint(size, 10)
	if len(digits) < len(field) {
		digits = strings.Repeat(" ", len(field)-len(digits)) + digits
	}

	t.lines[e.Line] = line[:loc[2]] + digits + line[loc[5]:]
	e.Size = size
}

// DropLastLBA removes the last-lba header of a GPT dump so sfdisk recomputes
// it for the device the table is written to. Other labels are returned as is.
func DropLastLBA(dump string) string {
	t, err := Parse(dump)
	if err != nil || t.Label() != "gpt" {
		return dump
	}

	lines := make([]string, 0, len(t.lines))
	for _, line := range t.lines {
		if strings.HasPrefix(strings.TrimSpace(line), "last-lba:") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
