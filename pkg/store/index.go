package store

import "github.com/zhangyunhao116/skipmap"

// indexEntry locates the latest live set record for a key.
type indexEntry struct {
	gen    uint64
	offset uint64
}

// keyIndex maps keys to their on-disk location. Backed by an ordered
// skip-list map so Keys can scan in lexicographic order.
type keyIndex struct {
	entries *skipmap.FuncMap[string, indexEntry]
}

func newKeyIndex() *keyIndex {
	return &keyIndex{
		entries: skipmap.NewFunc[string, indexEntry](func(a, b string) bool {
			return a < b
		}),
	}
}

func (idx *keyIndex) get(key string) (indexEntry, bool) {
	return idx.entries.Load(key)
}

func (idx *keyIndex) put(key string, entry indexEntry) {
	idx.entries.Store(key, entry)
}

func (idx *keyIndex) delete(key string) bool {
	return idx.entries.Delete(key)
}

func (idx *keyIndex) len() int {
	return idx.entries.Len()
}

func (idx *keyIndex) keys() []string {
	keys := make([]string, 0, idx.entries.Len())
	idx.entries.Range(func(key string, _ indexEntry) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

func (idx *keyIndex) walk(fn func(key string, entry indexEntry) bool) {
	idx.entries.Range(fn)
}
