package routepath

import (
	"errors"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		changed bool
		err     error
	}{
		{in: "/", want: "/"},
		{in: "", want: "/", changed: true},
		{in: "/orders/42", want: "/orders/42"},
		{in: "/orders/42/", want: "/orders/42", changed: true},
		{in: "//orders///42", want: "/orders/42", changed: true},
		{in: "/orders/./42", want: "/orders/42", changed: true},
		{in: "/orders/x/../42", want: "/orders/42", changed: true},
		{in: "orders", want: "/orders", changed: true},
		{in: "/a%20b", want: "/a%20b"},
		{in: "/a%2Fb", want: "/a%2Fb"},
		{in: "/..", err: ErrEscapesRoot},
		{in: "/a/../../b", err: ErrEscapesRoot},
		{in: `/a\b`, err: ErrBackslash},
		{in: "/a%00", err: ErrNullByte},
		{in: "/a%GG", err: ErrInvalidPercentEscape},
		{in: "/a%2", err: ErrInvalidPercentEscape},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, changed, err := Canonicalize(tt.in)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("err = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want || changed != tt.changed {
				t.Fatalf("Canonicalize(%q) = %q, %v; want %q, %v", tt.in, got, changed, tt.want, tt.changed)
			}
		})
	}
}
