// Package catalog reads and writes Magellan-style flat-file target catalogs:
// one target per line, whitespace-separated positional fields, and an
// optional trailing comment introduced by '#'.
package catalog

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/obscode/magdash/internal/record"
)

// maxLineBytes bounds a single catalog line.
const maxLineBytes = 1 << 20

// emptyField stands in for an empty text field so positions are preserved.
const emptyField = "-"

// ParseRecords splits catalog data into raw records, one per non-blank,
// non-comment line. Fields missing from short lines are left unset; fields
// past record.MaxFields are folded into the front of the comment.
func ParseRecords(source string, r io.Reader) ([]*record.Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var recs []*record.Record
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || trimmed[0] == '#' {
			continue
		}

		body, comment := splitComment(text)
		fields := strings.Fields(body)
		if len(fields) > record.MaxFields {
			overflow := make([]string, 0, len(fields)-record.MaxFields)
			for _, f := range fields[record.MaxFields:] {
				overflow = append(overflow, unescape(f))
			}
			comment = strings.TrimSpace(strings.Join(overflow, " ") + " " + comment)
			fields = fields[:record.MaxFields]
		}

		rec := record.New(source, line)
		for i, f := range fields {
			if f == emptyField {
				rec.Set(record.CatalogFields[i], "")
				continue
			}
			rec.Set(record.CatalogFields[i], unescape(f))
		}
		rec.Set(record.Comment, comment)
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", source, err)
	}
	return recs, nil
}

// splitComment cuts a line at its first unescaped '#'.
func splitComment(line string) (body, comment string) {
	for i := 0; i < len(line); i++ {
		if line[i] == '#' && (i == 0 || line[i-1] != '\\') {
			return line[:i], strings.TrimSpace(line[i+1:])
		}
	}
	return line, ""
}

func unescape(field string) string {
	return strings.ReplaceAll(field, `\#`, "#")
}

//go:embed standards.cat
var standardsCatalog []byte

// Standards returns the spectrophotometric standard stars added to the
// IMACS queue, as raw records.
func Standards() []*record.Record {
	recs, err := ParseRecords("standards", bytes.NewReader(standardsCatalog))
	if err != nil {
		panic(fmt.Sprintf("embedded standards catalog: %v", err))
	}
	return recs
}
