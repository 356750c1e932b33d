package render

import "testing"

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		html string
		attr string
	}{
		{in: "", html: "", attr: ""},
		{in: "Hello, World!", html: "Hello, World!", attr: "Hello, World!"},
		{in: "Tom & Jerry", html: "Tom &amp; Jerry", attr: "Tom &amp; Jerry"},
		{in: `say "hi"`, html: "say &quot;hi&quot;", attr: "say &quot;hi&quot;"},
		{in: "it's", html: "it&#39;s", attr: "it&#39;s"},
		{
			in:   "<script>alert('xss')</script>",
			html: "&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;",
			attr: "&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;",
		},
		{in: "a\nb\tc\r", html: "a\nb\tc\r", attr: "a&#10;b&#9;c&#13;"},
		{in: "Hello 世界 🌍", html: "Hello 世界 🌍", attr: "Hello 世界 🌍"},
		{in: "&amp;", html: "&amp;amp;", attr: "&amp;amp;"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := EscapeHTML(tt.in); got != tt.html {
				t.Errorf("EscapeHTML(%q) = %q, want %q", tt.in, got, tt.html)
			}
			if got := escapeAttr(tt.in); got != tt.attr {
				t.Errorf("escapeAttr(%q) = %q, want %q", tt.in, got, tt.attr)
			}
		})
	}
}
