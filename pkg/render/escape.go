package render

import "strings"

var (
	htmlReplacer = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)

	// Attribute values also escape whitespace that would otherwise be
	// normalized by the parser.
	attrReplacer = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
		"\n", "&#10;",
		"\r", "&#13;",
		"\t", "&#9;",
	)
)

// EscapeHTML escapes text for safe inclusion in HTML content. Components
// use it for error messages and other untrusted values.
func EscapeHTML(s string) string {
	return htmlReplacer.Replace(s)
}

func escapeHTML(s string) string {
	return htmlReplacer.Replace(s)
}

func escapeAttr(s string) string {
	return attrReplacer.Replace(s)
}
