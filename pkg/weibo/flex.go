package weibo

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexString decodes JSON strings and numbers alike. The source emits ids
// and cursors as either, depending on endpoint.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// FlexInt decodes counters that arrive as numbers or as localized strings
// such as "1.2万" or "100万+".
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexInt(ParseCount(s))
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if n < 0 {
		n = 0
	}
	*f = FlexInt(int(n))
	return nil
}

var countUnits = []struct {
	suffix string
	scale  float64
}{
	{"亿", 1e8},
	{"万", 1e4},
	{"w", 1e4},
	{"k", 1e3},
}

// ParseCount parses a display counter. Unparsable input yields 0.
func ParseCount(s string) int {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "+"))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	scale := 1.0
	lower := strings.ToLower(s)
	for _, u := range countUnits {
		if strings.HasSuffix(lower, u.suffix) {
			scale = u.scale
			s = s[:len(s)-len(u.suffix)]
			break
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return int(math.Round(v * scale))
}
