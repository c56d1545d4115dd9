// Package preview builds the metadata panel shown next to each image:
// a curated set of EXIF fields, PNG text chunks, and a few plain-language
// insights about what the metadata reveals.
package preview

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"cull/pkg/imgutil"
)

type Field struct {
	Label string
	Value string
}

type Insight struct {
	Kind    string
	Message string
}

// Preview describes one image file. Read problems are carried in Err rather
// than returned, so a bad file never interrupts a session.
type Preview struct {
	Name     string
	Path     string
	Size     int64
	Kind     imgutil.Kind
	Fields   []Field
	Insights []Insight
	Note     string
	Err      error
}

// SizeText is the file size in human units.
func (p Preview) SizeText() string {
	if p.Size <= 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(p.Size))
}

// Describe reads the metadata of the image at path.
func Describe(path string) Preview {
	p := Preview{Name: filepath.Base(path), Path: path}

	f, err := os.Open(path)
	if err != nil {
		p.Err = err
		return p
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		p.Err = err
		return p
	}
	p.Size = info.Size()

	kind, err := imgutil.SniffReader(f)
	if err != nil {
		p.Err = fmt.Errorf("read header: %w", err)
		return p
	}
	if kind == imgutil.KindUnknown {
		kind = imgutil.KindFromName(path)
	}
	p.Kind = kind

	var tags exifValues
	if kind.HasExif() {
		tags, err = readExif(f)
		if err != nil {
			p.Err = fmt.Errorf("EXIF read failed: %w", err)
			return p
		}
	}

	if kind == imgutil.KindPNG {
		text, err := readPNGText(f)
		if err != nil {
			p.Err = fmt.Errorf("PNG text read failed: %w", err)
			return p
		}
		p.Fields = append(p.Fields, text...)
	}

	p.Fields = append(curatedFields(tags), p.Fields...)
	p.Insights = buildInsights(tags)
	if len(tags) == 0 {
		p.Note = "No EXIF data"
	}
	return p
}

// Lines renders the preview as aligned text rows.
func (p Preview) Lines() []string {
	lines := []string{fmt.Sprintf("%s  (%s, %s)", p.Name, p.Kind, p.SizeText())}
	if p.Err != nil {
		return append(lines, p.Err.Error())
	}
	for _, f := range p.Fields {
		lines = append(lines, fmt.Sprintf("%-14s: %s", f.Label, f.Value))
	}
	if p.Note != "" {
		lines = append(lines, p.Note)
	}
	for _, in := range p.Insights {
		lines = append(lines, fmt.Sprintf("%s: %s", in.Kind, in.Message))
	}
	return lines
}
