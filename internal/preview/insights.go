package preview

import (
	"fmt"
	"strconv"
	"strings"
)

func buildInsights(values exifValues) []Insight {
	if len(values) == 0 {
		return nil
	}

	var out []Insight
	if in, ok := deviceInsight(values); ok {
		out = append(out, in)
	}
	if in, ok := captureInsight(values); ok {
		out = append(out, in)
	}
	if in, ok := locationInsight(values); ok {
		out = append(out, in)
	}
	return out
}

func deviceInsight(values exifValues) (Insight, bool) {
	make := values.first("Make")
	model := values.first("Model")

	device := model
	if make != "" && !strings.HasPrefix(strings.ToLower(model), strings.ToLower(make)) {
		device = strings.TrimSpace(make + " " + model)
	}
	if device == "" {
		return Insight{}, false
	}

	msg := device
	if class := deviceClass(strings.ToLower(device)); class != "" {
		msg += " (" + class + ")"
	}
	return Insight{Kind: "Device", Message: msg}, true
}

func captureInsight(values exifValues) (Insight, bool) {
	for _, tag := range []string{"DateTimeOriginal", "DateTimeDigitized", "DateTime"} {
		if ts := values.first(tag); ts != "" {
			// EXIF writes dates as 2006:01:02 15:04:05.
			return Insight{Kind: "Captured", Message: strings.Replace(ts, ":", "-", 2)}, true
		}
	}
	return Insight{}, false
}

func locationInsight(values exifValues) (Insight, bool) {
	lat, okLat := parseCoordinate(values.full("GPSLatitude"))
	lon, okLon := parseCoordinate(values.full("GPSLongitude"))
	if !okLat || !okLon {
		return Insight{}, false
	}
	if strings.EqualFold(values.first("GPSLatitudeRef"), "S") {
		lat = -lat
	}
	if strings.EqualFold(values.first("GPSLongitudeRef"), "W") {
		lon = -lon
	}
	return Insight{Kind: "Location", Message: fmt.Sprintf("%.5f, %.5f", lat, lon)}, true
}

// parseCoordinate accepts "[d/1 m/1 s/100]" rational triples or a plain decimal.
func parseCoordinate(raw string) (float64, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), "[]")
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return 0, false
	}

	scale := 1.0
	total := 0.0
	for i, part := range parts {
		if i > 2 {
			break
		}
		v, ok := parseRational(part)
		if !ok {
			return 0, false
		}
		total += v / scale
		scale *= 60
	}
	return total, true
}

func parseRational(part string) (float64, bool) {
	num, den, isFrac := strings.Cut(strings.TrimSpace(part), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if !isFrac {
		return n, true
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, false
	}
	return n / d, true
}

func deviceClass(device string) string {
	switch {
	case containsAny(device, "iphone", "pixel", "galaxy", "android"):
		return "smartphone"
	case containsAny(device, "ipad", "tablet"):
		return "tablet"
	case containsAny(device, "gopro"):
		return "action camera"
	case containsAny(device, "dji"):
		return "drone"
	case containsAny(device, "canon", "nikon", "sony", "fujifilm", "panasonic", "olympus", "leica"):
		return "camera"
	default:
		return ""
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
