package ocr

import "strings"

// ParseLanguages splits a language list such as "eng+hin" or "eng, hin".
// An empty list yields English.
func ParseLanguages(s string) []string {
	langs := strings.FieldsFunc(s, func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	})
	if len(langs) == 0 {
		return []string{"eng"}
	}
	return langs
}
