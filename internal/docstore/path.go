package docstore

import (
	"fmt"
	"strings"
)

const invalidSegmentChars = ".$#[]"

// Clean validates p and returns it without leading or trailing slashes.
func Clean(p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			return "", fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, p)
		}
		if strings.ContainsAny(seg, invalidSegmentChars) {
			return "", fmt.Errorf("%w: segment %q contains one of %q", ErrInvalidPath, seg, invalidSegmentChars)
		}
	}
	return p, nil
}

// Join builds a path from segments. It does not validate.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func segments(p string) []string {
	return strings.Split(p, "/")
}

// ancestors returns every proper prefix of p, shortest first.
func ancestors(p string) []string {
	segs := segments(p)
	out := make([]string, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		out = append(out, strings.Join(segs[:i], "/"))
	}
	return out
}

func isUnder(p, parent string) bool {
	return strings.HasPrefix(p, parent+"/")
}

// related reports whether a change at changed is visible to a reader of watched.
func related(watched, changed string) bool {
	return watched == changed || isUnder(watched, changed) || isUnder(changed, watched)
}

// relative returns the segments of p below base. p must be base or under it.
func relative(p, base string) []string {
	if p == base {
		return nil
	}
	return segments(strings.TrimPrefix(p, base+"/"))
}
