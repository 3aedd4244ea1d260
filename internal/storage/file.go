// internal/storage/file.go
package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/crypto/blake2b"
)

const (
	recordTypeBook     = "book"
	recordTypeMember   = "member"
	recordTypeChecksum = "checksum"

	maxLineBytes = 1024 * 1024
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fileRecord is one line of the JSON-lines format. Type selects which of
// the remaining fields are meaningful.
type fileRecord struct {
	Type      string `json:"type"`
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	ISBN      string `json:"isbn,omitempty"`
	Available *bool  `json:"available,omitempty"`
	Borrower  string `json:"borrower,omitempty"`
	Name      string `json:"name,omitempty"`
	ID        string `json:"id,omitempty"`
	Digest    string `json:"digest,omitempty"`
}

// FileStore keeps snapshots in local files. Targets ending in ".csv" are
// written in the legacy comma format; everything else as JSON lines with a
// BLAKE2b-256 trailer. Load sniffs the format from the first non-empty line.
type FileStore struct {
	defaultPath string
}

func NewFileStore(defaultPath string) *FileStore {
	return &FileStore{defaultPath: defaultPath}
}

func (s *FileStore) resolve(name string) string {
	if strings.TrimSpace(name) == "" {
		return s.defaultPath
	}
	return name
}

// Save writes snap to target, truncating any existing file.
func (s *FileStore) Save(ctx context.Context, target string, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.resolve(target)

	var buf bytes.Buffer
	var err error
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		err = EncodeLegacy(&buf, snap)
	} else {
		err = Encode(&buf, snap)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Load reads the snapshot stored at source.
func (s *FileStore) Load(ctx context.Context, source string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	path := s.resolve(source)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return Snapshot{}, fmt.Errorf("read %s: %w", path, err)
	}

	var snap Snapshot
	if isJSONLines(data) {
		snap, err = Decode(bytes.NewReader(data))
	} else {
		snap, err = DecodeLegacy(bytes.NewReader(data))
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return snap, nil
}

func isJSONLines(data []byte) bool {
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		return line[0] == '{'
	}
	return true
}

// Encode writes snap as JSON lines: books, then members, then a checksum
// record over all preceding lines.
func Encode(w io.Writer, snap Snapshot) error {
	bw := bufio.NewWriter(w)
	digest := newDigest()

	writeLine := func(rec fileRecord) error {
		line, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		line = append(line, '\n')
		digest.Write(line)
		_, err = bw.Write(line)
		return err
	}

	for _, b := range snap.Books {
		available := b.Available
		rec := fileRecord{
			Type:      recordTypeBook,
			Title:     b.Title,
			Author:    b.Author,
			ISBN:      b.ISBN,
			Available: &available,
			Borrower:  b.BorrowerID,
		}
		if err := writeLine(rec); err != nil {
			return fmt.Errorf("book %q: %w", b.Title, err)
		}
	}
	for _, m := range snap.Members {
		if err := writeLine(fileRecord{Type: recordTypeMember, Name: m.Name, ID: m.ID}); err != nil {
			return fmt.Errorf("member %q: %w", m.ID, err)
		}
	}

	trailer, err := json.Marshal(fileRecord{Type: recordTypeChecksum, Digest: hex.EncodeToString(digest.Sum(nil))})
	if err != nil {
		return err
	}
	if _, err := bw.Write(append(trailer, '\n')); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode parses the JSON-lines format. A checksum record, when present,
// must be last and must match.
func Decode(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	digest := newDigest()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	sealed := false
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		if sealed {
			return Snapshot{}, fmt.Errorf("line %d: data after checksum: %w", lineNo, ErrMalformedRecord)
		}

		var rec fileRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return Snapshot{}, fmt.Errorf("line %d: %v: %w", lineNo, err, ErrMalformedRecord)
		}

		switch rec.Type {
		case recordTypeBook:
			if rec.Available == nil {
				return Snapshot{}, fmt.Errorf("line %d: book without availability: %w", lineNo, ErrMalformedRecord)
			}
			snap.Books = append(snap.Books, BookRecord{
				Title:      rec.Title,
				Author:     rec.Author,
				ISBN:       rec.ISBN,
				Available:  *rec.Available,
				BorrowerID: rec.Borrower,
			})
		case recordTypeMember:
			snap.Members = append(snap.Members, MemberRecord{Name: rec.Name, ID: rec.ID})
		case recordTypeChecksum:
			if rec.Digest != hex.EncodeToString(digest.Sum(nil)) {
				return Snapshot{}, ErrChecksumMismatch
			}
			sealed = true
			continue
		default:
			return Snapshot{}, fmt.Errorf("line %d: unknown record type %q: %w", lineNo, rec.Type, ErrMalformedRecord)
		}

		digest.Write(raw)
		digest.Write([]byte{'\n'})
	}
	if err := scanner.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("read data: %w", err)
	}
	return snap, nil
}

func newDigest() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only fails for oversized keys
		panic(err)
	}
	return h
}
