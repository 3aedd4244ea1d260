// internal/storage/legacy.go
package storage

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const legacyDelimiter = ","

// DecodeLegacy parses the comma-delimited format: a line with one delimiter
// is a member (name,id), a line with three is a book
// (title,author,isbn,flag) where flag "1" means available. Blank lines are
// skipped. Legacy files never carry borrower ids.
func DecodeLegacy(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, legacyDelimiter)
		switch len(fields) {
		case 2:
			snap.Members = append(snap.Members, MemberRecord{Name: fields[0], ID: fields[1]})
		case 4:
			if fields[3] != "0" && fields[3] != "1" {
				return Snapshot{}, fmt.Errorf("line %d: availability flag %q: %w", lineNo, fields[3], ErrMalformedRecord)
			}
			snap.Books = append(snap.Books, BookRecord{
				Title:     fields[0],
				Author:    fields[1],
				ISBN:      fields[2],
				Available: fields[3] == "1",
			})
		default:
			return Snapshot{}, fmt.Errorf("line %d: %d fields: %w", lineNo, len(fields), ErrMalformedRecord)
		}
	}
	if err := scanner.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("read legacy data: %w", err)
	}
	return snap, nil
}

// EncodeLegacy writes snap in the comma-delimited format, books first.
// Borrower ids are not representable and are dropped.
func EncodeLegacy(w io.Writer, snap Snapshot) error {
	bw := bufio.NewWriter(w)
	for _, b := range snap.Books {
		if err := checkLegacyFields(b.Title, b.Author, b.ISBN); err != nil {
			return fmt.Errorf("book %q: %w", b.Title, err)
		}
		flag := "0"
		if b.Available {
			flag = "1"
		}
		fmt.Fprintf(bw, "%s,%s,%s,%s\n", b.Title, b.Author, b.ISBN, flag)
	}
	for _, m := range snap.Members {
		if err := checkLegacyFields(m.Name, m.ID); err != nil {
			return fmt.Errorf("member %q: %w", m.ID, err)
		}
		fmt.Fprintf(bw, "%s,%s\n", m.Name, m.ID)
	}
	return bw.Flush()
}

func checkLegacyFields(fields ...string) error {
	for _, f := range fields {
		if strings.Contains(f, legacyDelimiter) || strings.ContainsAny(f, "\r\n") {
			return ErrDelimiterInField
		}
	}
	return nil
}
