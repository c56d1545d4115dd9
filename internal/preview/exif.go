package preview

import (
	"errors"
	"io"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// exifValues maps tag names to their formatted values. The first IFD that
// carries a tag wins.
type exifValues map[string]exifValue

type exifValue struct {
	first string
	full  string
}

func (v exifValues) first(name string) string {
	return v[name].first
}

func (v exifValues) full(name string) string {
	return v[name].full
}

// curated lists the tags worth showing while triaging, in display order.
var curated = []struct {
	tag   string
	label string
}{
	{"Make", "Make"},
	{"Model", "Model"},
	{"DateTimeOriginal", "DateTimeOriginal"},
	{"FNumber", "FNumber"},
	{"ExposureTime", "ExposureTime"},
	{"ISOSpeedRatings", "ISO"},
	{"FocalLength", "FocalLength"},
	{"LensModel", "LensModel"},
	{"Software", "Software"},
}

func readExif(rs io.ReadSeeker) (exifValues, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(rs, nil, true)
	if err != nil {
		if isNoExif(err) {
			return nil, nil
		}
		return nil, err
	}

	values := make(exifValues, len(tags))
	for _, tag := range tags {
		if _, seen := values[tag.TagName]; seen || tag.TagName == "" {
			continue
		}
		values[tag.TagName] = exifValue{
			first: strings.TrimSpace(tag.FormattedFirst),
			full:  strings.TrimSpace(tag.Formatted),
		}
	}
	return values, nil
}

func curatedFields(values exifValues) []Field {
	var fields []Field
	for _, c := range curated {
		if v := values.first(c.tag); v != "" {
			fields = append(fields, Field{Label: c.label, Value: v})
		}
	}
	return fields
}

func isNoExif(err error) bool {
	if errors.Is(err, exif.ErrNoExif) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}
