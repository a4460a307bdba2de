package linuxperf

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// Number of general purpose color ids.  Any string hashes to one of
// these.  The reserved (named) ids come after them.
const numRegularColorIds = 22

var reservedColorIds = map[string]int{
	"running":  numRegularColorIds + 0,
	"runnable": numRegularColorIds + 1,
	"sleeping": numRegularColorIds + 2,
	"iowait":   numRegularColorIds + 3,
}

// The number of distinct slice titles in a trace is usually small,
// but user-space markers can be arbitrary, so bound the memo.
const colorIdCacheSize = 4096

var colorIdMux sync.Mutex
var colorIdCache *lru.Cache = lru.New(colorIdCacheSize)

func getStringHash(s string) uint64 {
	var hash uint64

	for i := 0; i < len(s); i++ {
		hash = (hash + 37*hash + 11*uint64(s[i])) % 0xFFFFFFFF
	}

	return hash
}

// Map a string to a stable color id.  The same string always gets
// the same id.
func getStringColorId(s string) int {
	colorIdMux.Lock()
	defer colorIdMux.Unlock()

	if v, ok := colorIdCache.Get(s); ok {
		return v.(int)
	}

	id := int(getStringHash(s) % numRegularColorIds)
	colorIdCache.Add(s, id)

	return id
}

// Return the reserved color id for a well-known state name, or -1.
func getColorIdByName(name string) int {
	id, ok := reservedColorIds[name]
	if !ok {
		return -1
	}
	return id
}
