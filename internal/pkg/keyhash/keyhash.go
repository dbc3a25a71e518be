package keyhash

import "hash/fnv"

// Bucket maps key onto one of n buckets with FNV-1a. The same key always
// lands in the same bucket.
func Bucket(key string, n uint32) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % n
}
