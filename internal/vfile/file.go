// Package vfile implements the File entity: an identified,
// cursor-addressed sequence of Number/Keyword values. It is named vfile to
// avoid colliding with the "file" package name Go reserves informally for
// os.File-adjacent code; nothing here touches the filesystem (loading
// program/host-layout text is an external collaborator, see package config).
package vfile

import (
	"strconv"
	"strings"

	"github.com/exa-vm/exacore/internal/exaerr"
	"github.com/exa-vm/exacore/internal/value"
)

// File is a named, cursor-addressed sequence of Values. The zero value is
// not usable; use New.
type File struct {
	id       string
	contents []value.Value
	cursor   int
}

// New returns an empty File with the given id (as minted by idgen.Generator,
// or supplied directly for a hand-placed level file).
func New(id string) *File {
	return &File{id: id}
}

// NewWithContents returns a File pre-loaded with contents, cursor at 0.
func NewWithContents(id string, contents []value.Value) *File {
	c := make([]value.Value, len(contents))
	copy(c, contents)
	return &File{id: id, contents: c}
}

// ID returns the file's identifier.
func (f *File) ID() string { return f.id }

// Len reports the number of values in the file.
func (f *File) Len() int { return len(f.contents) }

// Cursor reports the current cursor position, in [0, Len()].
func (f *File) Cursor() int { return f.cursor }

// AtEOF reports whether the cursor sits at the end of the file.
func (f *File) AtEOF() bool { return f.cursor >= len(f.contents) }

// Values returns a copy of the file's contents, for inspection/testing.
func (f *File) Values() []value.Value {
	out := make([]value.Value, len(f.contents))
	copy(out, f.contents)
	return out
}

// Seek adjusts the cursor by delta, saturating to [0, Len()]: SEEK is
// idempotent at boundaries, never overshooting past 0 or Len().
func (f *File) Seek(delta int) {
	c := f.cursor + delta
	if c < 0 {
		c = 0
	}
	if c > len(f.contents) {
		c = len(f.contents)
	}
	f.cursor = c
}

// ReadAdvance returns the value at the cursor and advances it by one. It
// fails with InvalidFRegisterAccess at EOF.
func (f *File) ReadAdvance() (value.Value, error) {
	if f.AtEOF() {
		return value.Value{}, exaerr.Die(exaerr.InvalidFRegisterAccess)
	}
	v := f.contents[f.cursor]
	f.cursor++
	return v, nil
}

// WriteAdvance replaces the value at the cursor (or appends, at EOF) and
// advances the cursor by one.
func (f *File) WriteAdvance(v value.Value) {
	if f.cursor < len(f.contents) {
		f.contents[f.cursor] = v
	} else {
		f.contents = append(f.contents, v)
	}
	f.cursor++
}

// VoidAtCursor removes the value at the cursor, if any. The cursor is left
// unchanged (the following element, if any, shifts into its place).
func (f *File) VoidAtCursor() {
	if f.cursor >= len(f.contents) {
		return
	}
	f.contents = append(f.contents[:f.cursor], f.contents[f.cursor+1:]...)
}

// ParseValues parses the line-oriented on-disk File format: one Number or
// Keyword per line, blank lines skipped.
// Each non-blank line that parses as a signed decimal integer becomes a
// Number (not range-checked here); everything else becomes a Keyword
// verbatim.
func ParseValues(lines []string) []value.Value {
	var out []value.Value
	for _, line := range lines {
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if n, err := strconv.Atoi(line); err == nil {
			out = append(out, value.NewNumber(n))
			continue
		}
		out = append(out, value.NewKeyword(line))
	}
	return out
}
