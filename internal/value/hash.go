package value

// mixCollectionHash folds per-element hashes into one collection hash,
// consistent with the equality relation: order matters for ordered=true
// (list/vector), and is ignored (the fold is commutative, implemented as
// a sum) for ordered=false (map/set), per spec's hashing invariant.
//
// The element mixing step is a Murmur3-style avalanche (the teacher's
// object hashing leans on fnv.New32a for strings; we use a comparable
// integer mixer here since collection hashing needs to fold an already-
// computed hash rather than a byte stream).
func mixCollectionHash(hashes []uint32, count int, ordered bool) uint32 {
	var h uint32 = 1
	if ordered {
		for _, x := range hashes {
			h = 31*h + murmur3Mix(x)
		}
	} else {
		var sum uint32
		for _, x := range hashes {
			sum += murmur3Mix(x)
		}
		h = sum
	}
	h ^= uint32(count)
	return murmur3Fmix(h)
}

func murmur3Mix(k uint32) uint32 {
	k *= 0xcc9e2d51
	k = (k << 15) | (k >> 17)
	k *= 0x1b873593
	return k
}

func murmur3Fmix(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}
