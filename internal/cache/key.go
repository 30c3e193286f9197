package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// KW is a keyword argument included in a cache key. Keyword arguments are
// sorted by name so that call sites may pass them in any order and still hit
// the same entry.
type KW struct {
	Name  string
	Value interface{}
}

// Key builds the deterministic cache key for a memoized call: the MD5 hex
// digest of the qualified function name, its positional arguments in order,
// and its keyword arguments sorted by name. Values are rendered with %v, so
// enums, provider names, contract addresses and integers all serialize
// stably across process runs.
func Key(qualifiedName string, args []interface{}, kwargs ...KW) string {
	var b strings.Builder
	b.WriteString(qualifiedName)
	for _, arg := range args {
		fmt.Fprintf(&b, "|%v", arg)
	}
	sorted := make([]KW, len(kwargs))
	copy(sorted, kwargs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, kw := range sorted {
		fmt.Fprintf(&b, "|%s=%v", kw.Name, kw.Value)
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
