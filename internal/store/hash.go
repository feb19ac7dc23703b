package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ComputeExportsHash fingerprints a module's export surface: names, kinds
// and rendered values. Positions do not affect the hash, so moving code
// around does not invalidate importers.
func ComputeExportsHash(exports []Export) string {
	type key struct{ name, kind, repr, origin string }
	keys := make([]key, len(exports))
	for i, e := range exports {
		keys[i] = key{e.Name, e.Kind, e.Repr, e.Origin}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].repr < keys[j].repr
	})

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "export:%s:%s:%s:%s\n", k.name, k.kind, k.origin, k.repr)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
