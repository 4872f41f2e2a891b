package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	numberPattern  = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`)
	integerPattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})+|\d+`)
)

// StripTags removes HTML tags from s
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, " ")
}

// ParsePrice extracts a price from a feed value. Numbers pass through; strings
// are stripped of HTML and the largest numeric token wins, so stray leading
// digits such as item indices are ignored. No token yields 0.
func ParsePrice(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		return maxToken(n)
	default:
		return maxToken(fmt.Sprint(n))
	}
}

// ParseStock extracts a stock count from a feed value: the first integer token
// found, or 0 when there is none.
func ParseStock(v any) int {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case string:
		tok := integerPattern.FindString(StripTags(n))
		if tok == "" {
			return 0
		}
		i, err := strconv.Atoi(strings.ReplaceAll(tok, ",", ""))
		if err != nil {
			return 0
		}
		return i
	default:
		return ParseStock(fmt.Sprint(n))
	}
}

func maxToken(s string) float64 {
	var best float64
	for _, tok := range numberPattern.FindAllString(StripTags(s), -1) {
		f, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", ""), 64)
		if err != nil {
			continue
		}
		if f > best {
			best = f
		}
	}
	return best
}

func cardIDString(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(n)
	case float64:
		return strconv.FormatInt(int64(n), 10)
	default:
		return fmt.Sprint(n)
	}
}
