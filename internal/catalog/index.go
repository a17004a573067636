package catalog

import "slices"

// multiIndex maps a field value to the ordered positions of the books
// carrying it. Buckets keep insertion order and are never left empty.
type multiIndex map[string][]int

func (m multiIndex) insert(key string, pos int) {
	m[key] = append(m[key], pos)
}

// drop removes pos from the bucket for key and deletes the bucket once it
// becomes empty.
func (m multiIndex) drop(key string, pos int) {
	bucket := m[key]
	i := slices.Index(bucket, pos)
	if i < 0 {
		return
	}
	bucket = slices.Delete(bucket, i, i+1)
	if len(bucket) == 0 {
		delete(m, key)
		return
	}
	m[key] = bucket
}

// shiftAfter decrements every stored position greater than removed.
func (m multiIndex) shiftAfter(removed int) {
	for _, bucket := range m {
		for i, p := range bucket {
			if p > removed {
				bucket[i] = p - 1
			}
		}
	}
}

// keys returns the distinct keys in sorted order.
func (m multiIndex) keys() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// uniqueIndex maps a primary key to exactly one position.
type uniqueIndex map[string]int

func (u uniqueIndex) shiftAfter(removed int) {
	for k, p := range u {
		if p > removed {
			u[k] = p - 1
		}
	}
}
