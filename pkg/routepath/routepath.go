// Package routepath canonicalizes request paths before routing.
package routepath

import (
	"errors"
	"strings"
)

// Errors for paths that cannot be canonicalized.
var (
	ErrBackslash            = errors.New("path contains backslash")
	ErrNullByte             = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrEscapesRoot          = errors.New("path escapes root via ..")
)

// Canonicalize normalizes an escaped URL path: it collapses repeated
// slashes, drops "." segments, resolves ".." segments and strips the
// trailing slash (except for "/"). Percent escapes are validated but kept
// as they are. changed reports whether the result differs from path.
func Canonicalize(path string) (canonical string, changed bool, err error) {
	if path == "" {
		return "/", true, nil
	}
	if strings.Contains(path, "\\") {
		return "", false, ErrBackslash
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return "", false, ErrNullByte
	}
	if err := validateEscapes(path); err != nil {
		return "", false, err
	}

	var segments []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segments) == 0 {
				return "", false, ErrEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}

	canonical = "/" + strings.Join(segments, "/")
	return canonical, canonical != path, nil
}

func validateEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHex(path[i+1]) || !isHex(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
