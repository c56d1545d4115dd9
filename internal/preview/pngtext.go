package preview

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

const (
	maxTextFields = 8
	maxTextValue  = 80
)

// readPNGText collects uncompressed tEXt keyword/value pairs. Compressed
// and international chunks only contribute their keyword.
func readPNGText(rs io.ReadSeeker) ([]Field, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	br := bufio.NewReader(rs)

	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(br, sig); err != nil {
		return nil, err
	}
	if !bytes.Equal(sig, pngSignature) {
		return nil, errors.New("invalid PNG signature")
	}

	var fields []Field
	header := make([]byte, 8)
	for len(fields) < maxTextFields {
		if _, err := io.ReadFull(br, header); err != nil {
			if errors.Is(err, io.EOF) {
				return fields, nil
			}
			return fields, err
		}
		length := binary.BigEndian.Uint32(header[:4])
		name := string(header[4:])

		switch name {
		case "tEXt", "zTXt", "iTXt":
			data := make([]byte, length)
			if _, err := io.ReadFull(br, data); err != nil {
				return fields, err
			}
			if _, err := br.Discard(4); err != nil {
				return fields, err
			}
			if f, ok := textField(name, data); ok {
				fields = append(fields, f)
			}
		case "IEND":
			return fields, nil
		default:
			if _, err := io.CopyN(io.Discard, br, int64(length)+4); err != nil {
				return fields, err
			}
		}
	}
	return fields, nil
}

func textField(chunk string, data []byte) (Field, bool) {
	key, value, ok := bytes.Cut(data, []byte{0})
	if !ok || len(key) == 0 {
		return Field{}, false
	}
	if chunk != "tEXt" {
		return Field{Label: string(key), Value: "(" + chunk + ")"}, true
	}
	v := string(value)
	if len(v) > maxTextValue {
		v = v[:maxTextValue] + "…"
	}
	return Field{Label: string(key), Value: v}, true
}
