package book

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Context is the first element of the preprocessor input.
type Context struct {
	Root          string         `json:"root"`
	Config        map[string]any `json:"config"`
	Renderer      string         `json:"renderer"`
	MdbookVersion string         `json:"mdbook_version"`

	// Raw keeps the undecoded context so configuration lookups see the
	// exact host values.
	Raw json.RawMessage `json:"-"`
}

// Book is the chapter tree handed over by the host and written back.
type Book struct {
	Sections      []BookItem `json:"sections"`
	NonExhaustive *struct{}  `json:"__non_exhaustive"`
}

// BookItem is one of a chapter, a separator or a part title.
type BookItem struct {
	Chapter   *Chapter
	Separator bool
	PartTitle *string
}

// Chapter is a page of the book. Path is nil for draft chapters.
type Chapter struct {
	Name        string     `json:"name"`
	Content     string     `json:"content"`
	Number      []uint32   `json:"number"`
	SubItems    []BookItem `json:"sub_items"`
	Path        *string    `json:"path"`
	SourcePath  *string    `json:"source_path"`
	ParentNames []string   `json:"parent_names"`
}

const separator = "Separator"

func (b BookItem) MarshalJSON() ([]byte, error) {
	switch {
	case b.Chapter != nil:
		return marshal(map[string]*Chapter{"Chapter": b.Chapter})
	case b.PartTitle != nil:
		return marshal(map[string]string{"PartTitle": *b.PartTitle})
	case b.Separator:
		return json.Marshal(separator)
	default:
		return nil, fmt.Errorf("empty book item")
	}
}

func (b *BookItem) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != separator {
			return fmt.Errorf("unknown book item %q", s)
		}
		*b = BookItem{Separator: true}
		return nil
	}

	var raw struct {
		Chapter   *Chapter `json:"Chapter"`
		PartTitle *string  `json:"PartTitle"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Chapter == nil && raw.PartTitle == nil {
		return fmt.Errorf("unknown book item %s", data)
	}
	*b = BookItem{Chapter: raw.Chapter, PartTitle: raw.PartTitle}
	return nil
}

// MarshalJSON writes empty lists instead of null, as the host expects.
func (c *Chapter) MarshalJSON() ([]byte, error) {
	type plain Chapter
	out := plain(*c)
	if out.SubItems == nil {
		out.SubItems = []BookItem{}
	}
	if out.ParentNames == nil {
		out.ParentNames = []string{}
	}
	return marshal(out)
}

// NewChapter builds a generated chapter at the given routing path.
func NewChapter(name, content, path string) *Chapter {
	return &Chapter{
		Name:        name,
		Content:     content,
		Path:        &path,
		SourcePath:  nil,
		SubItems:    []BookItem{},
		ParentNames: []string{},
	}
}

// PathString returns the chapter path, or "" for drafts.
func (c *Chapter) PathString() string {
	if c.Path == nil {
		return ""
	}
	return *c.Path
}

// ForEachChapter visits every chapter depth-first in book order. Returning
// an error stops the walk.
func (b *Book) ForEachChapter(fn func(*Chapter) error) error {
	return forEach(b.Sections, fn)
}

func forEach(items []BookItem, fn func(*Chapter) error) error {
	for _, item := range items {
		if item.Chapter == nil {
			continue
		}
		if err := fn(item.Chapter); err != nil {
			return err
		}
		if err := forEach(item.Chapter.SubItems, fn); err != nil {
			return err
		}
	}
	return nil
}

// Place appends generated chapters to the book. When nestUnder names a
// top-level chapter they become its sub-items, numbered after its existing
// children; otherwise they are appended at the top level. The result
// reports whether the named chapter was found.
func (b *Book) Place(chapters []*Chapter, nestUnder string) bool {
	var target *Chapter
	if nestUnder != "" {
		for _, item := range b.Sections {
			if item.Chapter != nil && item.Chapter.Name == nestUnder {
				target = item.Chapter
				break
			}
		}
	}

	if target == nil {
		for _, c := range chapters {
			b.Sections = append(b.Sections, BookItem{Chapter: c})
		}
		return nestUnder == ""
	}

	offset := 0
	for _, item := range target.SubItems {
		if item.Chapter != nil {
			offset++
		}
	}
	for i, c := range chapters {
		number := append([]uint32(nil), target.Number...)
		c.Number = append(number, uint32(offset+i+1))
		c.ParentNames = append(append([]string(nil), target.ParentNames...), target.Name)
		target.SubItems = append(target.SubItems, BookItem{Chapter: c})
	}
	return true
}

// Encode writes the book as the host expects it on stdout.
func Encode(b *Book) ([]byte, error) {
	if b.Sections == nil {
		b.Sections = []BookItem{}
	}
	return marshal(b)
}

// marshal encodes without escaping HTML, since page content carries the
// generated anchors verbatim.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Title returns a short description of an item for log output.
func (b BookItem) Title() string {
	switch {
	case b.Chapter != nil:
		return b.Chapter.Name
	case b.PartTitle != nil:
		return strings.TrimSpace(*b.PartTitle)
	default:
		return separator
	}
}
