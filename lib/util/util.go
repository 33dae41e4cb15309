// Package util contains helper functions used around the code.
package util

// In returns true if s is found in ss, false otherwise
func In[E comparable](ss []E, s E) bool {
	for _, v := range ss {
		if s == v {
			return true
		}
	}

	return false
}

// Unique returns the elements of ss in order with duplicates removed.
func Unique[E comparable](ss []E) []E {
	seen := make(map[E]struct{}, len(ss))
	out := make([]E, 0, len(ss))

	for _, v := range ss {
		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}
