package source

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"time"
)

// Dictionary is one loaded version of a key/value resource. It is never
// modified after the loader returns it, so borrowers may read it without
// locking.
type Dictionary struct {
	// Entries maps keys to values.
	Entries map[string]string `json:"-"`

	// Source describes where the entries came from, e.g. a file path.
	Source string `json:"source"`

	// Checksum is the hex sha256 of the loaded content.
	Checksum string `json:"checksum"`

	// LoadedAt is when the loader finished.
	LoadedAt time.Time `json:"loaded_at"`
}

// Lookup returns the value stored under key.
func (d *Dictionary) Lookup(key string) (string, bool) {
	v, ok := d.Entries[key]
	return v, ok
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.Entries)
}

// Keys returns the keys in sorted order.
func (d *Dictionary) Keys() []string {
	keys := make([]string, 0, len(d.Entries))
	for k := range d.Entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
