package value

// PersistentMap unifies spec's array-map (<=8 entries, insertion order,
// linear scan) and hash-map (HAMT, 32-way) behind one Value, switching
// representation on Put when the entry count crosses arrayMapMax. This
// mirrors the teacher's internal/evaluator/persistent_map.go HAMT
// almost verbatim for the hash-map branch — same bitmap-node layout,
// same clone-on-path-to-root discipline — generalized with the small
// array_map fast path spec.md §4.B calls for.
type PersistentMap struct {
	arr  *arrayMapBody // non-nil while in array-map mode
	hamt *hamtNode     // non-nil while in hash-map mode
	size int
}

const arrayMapMax = 8

type arrayMapBody struct {
	keys []Value
	vals []Value
}

func EmptyMap() *PersistentMap {
	return &PersistentMap{arr: &arrayMapBody{}}
}

func (m *PersistentMap) Tag() Tag { return TagMap }

func (m *PersistentMap) Count() int { return m.size }

func (m *PersistentMap) Hash() uint32 {
	hashes := make([]uint32, 0, m.size)
	m.Each(func(k, v Value) {
		hashes = append(hashes, k.Hash()*31^v.Hash())
	})
	return mixCollectionHash(hashes, m.size, false)
}

// Get returns the value for key and whether it was present.
func (m *PersistentMap) Get(key Value) (Value, bool) {
	if m.arr != nil {
		for i, k := range m.arr.keys {
			if Eql(k, key) {
				return m.arr.vals[i], true
			}
		}
		return nil, false
	}
	if m.hamt == nil {
		return nil, false
	}
	v, ok := m.hamt.get(key.Hash(), key, 0)
	return v, ok
}

// Assoc returns a new map with key bound to val.
func (m *PersistentMap) Assoc(key, val Value) *PersistentMap {
	if m.arr != nil {
		for i, k := range m.arr.keys {
			if Eql(k, key) {
				newKeys := append([]Value(nil), m.arr.keys...)
				newVals := append([]Value(nil), m.arr.vals...)
				newVals[i] = val
				return &PersistentMap{arr: &arrayMapBody{keys: newKeys, vals: newVals}, size: m.size}
			}
		}
		if m.size+1 <= arrayMapMax {
			newKeys := append(append([]Value(nil), m.arr.keys...), key)
			newVals := append(append([]Value(nil), m.arr.vals...), val)
			return &PersistentMap{arr: &arrayMapBody{keys: newKeys, vals: newVals}, size: m.size + 1}
		}
		// Promote to hash-map representation.
		h := &PersistentMap{size: m.size}
		for i, k := range m.arr.keys {
			h = h.assocHamt(k, m.arr.vals[i])
		}
		return h.assocHamt(key, val)
	}
	return m.assocHamt(key, val)
}

func (m *PersistentMap) assocHamt(key, val Value) *PersistentMap {
	var root *hamtNode
	var added bool
	if m.hamt == nil {
		root, added = (&hamtNode{}).put(key.Hash(), key, val, 0)
	} else {
		root, added = m.hamt.put(key.Hash(), key, val, 0)
	}
	size := m.size
	if added {
		size++
	}
	return &PersistentMap{hamt: root, size: size}
}

// Dissoc returns a new map without key.
func (m *PersistentMap) Dissoc(key Value) *PersistentMap {
	if m.arr != nil {
		for i, k := range m.arr.keys {
			if Eql(k, key) {
				newKeys := append(append([]Value(nil), m.arr.keys[:i]...), m.arr.keys[i+1:]...)
				newVals := append(append([]Value(nil), m.arr.vals[:i]...), m.arr.vals[i+1:]...)
				return &PersistentMap{arr: &arrayMapBody{keys: newKeys, vals: newVals}, size: m.size - 1}
			}
		}
		return m
	}
	if m.hamt == nil {
		return m
	}
	newRoot, removed := m.hamt.remove(key.Hash(), key, 0)
	if !removed {
		return m
	}
	return &PersistentMap{hamt: newRoot, size: m.size - 1}
}

// Each calls f for every entry, in array order for array-maps
// (insertion order) or trie-visitation order for hash-maps (unspecified
// per spec but stable within one value's lifetime).
func (m *PersistentMap) Each(f func(k, v Value)) {
	if m.arr != nil {
		for i, k := range m.arr.keys {
			f(k, m.arr.vals[i])
		}
		return
	}
	if m.hamt != nil {
		m.hamt.each(f)
	}
}

func (m *PersistentMap) Keys() []Value {
	out := make([]Value, 0, m.size)
	m.Each(func(k, _ Value) { out = append(out, k) })
	return out
}

func (m *PersistentMap) Vals() []Value {
	out := make([]Value, 0, m.size)
	m.Each(func(_, v Value) { out = append(out, v) })
	return out
}

// --- HAMT node, adapted from the teacher's persistent_map.go ---

const (
	hamtBits = 5
	hamtSize = 1 << hamtBits
	hamtMask = hamtSize - 1
)

type hamtNode struct {
	bitmap uint32
	nodes  []interface{} // hamtEntry or *hamtNode
}

type hamtEntry struct {
	hash  uint32
	key   Value
	val   Value
}

func popcount(x uint32) int {
	x = x - ((x >> 1) & 0x55555555)
	x = (x & 0x33333333) + ((x >> 2) & 0x33333333)
	x = (x + (x >> 4)) & 0x0f0f0f0f
	x = x + (x >> 8)
	x = x + (x >> 16)
	return int(x & 0x3f)
}

func (n *hamtNode) get(hash uint32, key Value, shift uint) (Value, bool) {
	if shift >= 32 {
		for _, node := range n.nodes {
			if e, ok := node.(hamtEntry); ok && Eql(e.key, key) {
				return e.val, true
			}
		}
		return nil, false
	}
	idx := (hash >> shift) & hamtMask
	bit := uint32(1) << idx
	if n.bitmap&bit == 0 {
		return nil, false
	}
	pos := popcount(n.bitmap & (bit - 1))
	switch v := n.nodes[pos].(type) {
	case hamtEntry:
		if v.hash == hash && Eql(v.key, key) {
			return v.val, true
		}
		return nil, false
	case *hamtNode:
		return v.get(hash, key, shift+hamtBits)
	}
	return nil, false
}

func (n *hamtNode) put(hash uint32, key, val Value, shift uint) (*hamtNode, bool) {
	if shift >= 32 {
		newNode := &hamtNode{bitmap: n.bitmap, nodes: append([]interface{}(nil), n.nodes...)}
		for i, node := range newNode.nodes {
			if e, ok := node.(hamtEntry); ok && Eql(e.key, key) {
				newNode.nodes[i] = hamtEntry{hash: hash, key: key, val: val}
				return newNode, false
			}
		}
		newNode.nodes = append(newNode.nodes, hamtEntry{hash: hash, key: key, val: val})
		return newNode, true
	}

	idx := (hash >> shift) & hamtMask
	bit := uint32(1) << idx
	newNode := &hamtNode{bitmap: n.bitmap, nodes: append([]interface{}(nil), n.nodes...)}

	if n.bitmap&bit == 0 {
		newNode.bitmap |= bit
		pos := popcount(newNode.bitmap & (bit - 1))
		newNode.nodes = append(newNode.nodes, nil)
		copy(newNode.nodes[pos+1:], newNode.nodes[pos:])
		newNode.nodes[pos] = hamtEntry{hash: hash, key: key, val: val}
		return newNode, true
	}

	pos := popcount(n.bitmap & (bit - 1))
	switch v := newNode.nodes[pos].(type) {
	case hamtEntry:
		if v.hash == hash && Eql(v.key, key) {
			newNode.nodes[pos] = hamtEntry{hash: hash, key: key, val: val}
			return newNode, false
		}
		child := &hamtNode{}
		var a1, a2 bool
		child, a1 = child.put(v.hash, v.key, v.val, shift+hamtBits)
		child, a2 = child.put(hash, key, val, shift+hamtBits)
		newNode.nodes[pos] = child
		return newNode, a1 || a2
	case *hamtNode:
		newChild, added := v.put(hash, key, val, shift+hamtBits)
		newNode.nodes[pos] = newChild
		return newNode, added
	}
	return newNode, false
}

func (n *hamtNode) remove(hash uint32, key Value, shift uint) (*hamtNode, bool) {
	if shift >= 32 {
		for i, node := range n.nodes {
			if e, ok := node.(hamtEntry); ok && Eql(e.key, key) {
				newNodes := append(append([]interface{}(nil), n.nodes[:i]...), n.nodes[i+1:]...)
				return &hamtNode{bitmap: n.bitmap, nodes: newNodes}, true
			}
		}
		return n, false
	}
	idx := (hash >> shift) & hamtMask
	bit := uint32(1) << idx
	if n.bitmap&bit == 0 {
		return n, false
	}
	pos := popcount(n.bitmap & (bit - 1))
	switch v := n.nodes[pos].(type) {
	case hamtEntry:
		if v.hash != hash || !Eql(v.key, key) {
			return n, false
		}
		newNodes := append(append([]interface{}(nil), n.nodes[:pos]...), n.nodes[pos+1:]...)
		return &hamtNode{bitmap: n.bitmap &^ bit, nodes: newNodes}, true
	case *hamtNode:
		newChild, removed := v.remove(hash, key, shift+hamtBits)
		if !removed {
			return n, false
		}
		if len(newChild.nodes) == 0 {
			newNodes := append(append([]interface{}(nil), n.nodes[:pos]...), n.nodes[pos+1:]...)
			return &hamtNode{bitmap: n.bitmap &^ bit, nodes: newNodes}, true
		}
		if len(newChild.nodes) == 1 {
			if e, ok := newChild.nodes[0].(hamtEntry); ok {
				newNodes := append([]interface{}(nil), n.nodes...)
				newNodes[pos] = e
				return &hamtNode{bitmap: n.bitmap, nodes: newNodes}, true
			}
		}
		newNodes := append([]interface{}(nil), n.nodes...)
		newNodes[pos] = newChild
		return &hamtNode{bitmap: n.bitmap, nodes: newNodes}, true
	}
	return n, false
}

func (n *hamtNode) each(f func(k, v Value)) {
	for _, node := range n.nodes {
		switch v := node.(type) {
		case hamtEntry:
			f(v.key, v.val)
		case *hamtNode:
			v.each(f)
		}
	}
}
