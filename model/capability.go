package model

import "strings"

// CapabilitySet is the set of capabilities granted to a user, e.g.
// "students:bulk:delete". Entries ending in ":*" (or a bare "*") grant every
// capability under that prefix.
type CapabilitySet map[string]bool

// Has reports whether the set grants cap directly or through a wildcard.
func (cs CapabilitySet) Has(cap string) bool {
	if cs[cap] {
		return true
	}
	for pattern := range cs {
		if pattern == "*" {
			return true
		}
		if strings.HasSuffix(pattern, ":*") && strings.HasPrefix(cap, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of caps is granted. An empty list is
// always satisfied.
func (cs CapabilitySet) HasAll(caps ...string) bool {
	for _, c := range caps {
		if !cs.Has(c) {
			return false
		}
	}
	return true
}
