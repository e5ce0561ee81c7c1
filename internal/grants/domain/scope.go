package domain

import (
	"strings"
)

// Scope is the ordered set of record field names a grant exposes to the
// grantee. An empty scope is the sentinel for "full record"; it is never
// interpreted as "no fields".
type Scope []string

// NewScope normalizes raw field names into a Scope: names are trimmed,
// blanks dropped, and duplicates removed while preserving first-seen order.
func NewScope(fields []string) Scope {
	seen := make(map[string]struct{}, len(fields))
	out := make(Scope, 0, len(fields))

	for _, raw := range fields {
		f := strings.TrimSpace(raw)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}

	return out
}

// ParseScope decodes the storage representation produced by String.
func ParseScope(s string) Scope {
	if s == "" {
		return nil
	}
	return NewScope(strings.Split(s, ","))
}

// IsFull reports whether the scope exposes the full record.
func (s Scope) IsFull() bool {
	return len(s) == 0
}

// Allows reports whether the scope authorizes access to the named field.
// A full scope allows every field.
func (s Scope) Allows(field string) bool {
	if s.IsFull() {
		return true
	}
	for _, f := range s {
		if f == field {
			return true
		}
	}
	return false
}

// String returns the comma-joined storage representation. A full scope is
// stored as the empty string.
func (s Scope) String() string {
	return strings.Join(s, ",")
}
