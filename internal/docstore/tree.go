package docstore

import (
	"bytes"
	"encoding/json"
	"strconv"
)

func decodeValue(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// arrayToMap turns a JSON array into an index-keyed object, the shape an
// array takes once one of its elements is addressed directly.
func arrayToMap(a []any) map[string]any {
	m := make(map[string]any, len(a))
	for i, v := range a {
		if v != nil {
			m[strconv.Itoa(i)] = v
		}
	}
	return m
}

func getAt(root any, segs []string) any {
	cur := root
	for _, s := range segs {
		switch n := cur.(type) {
		case map[string]any:
			cur = n[s]
		case []any:
			i, err := strconv.Atoi(s)
			if err != nil || i < 0 || i >= len(n) {
				return nil
			}
			cur = n[i]
		default:
			return nil
		}
	}
	return cur
}

// setAt places v at segs below root and returns the new root. Scalars and
// arrays on the way are replaced by objects.
func setAt(root any, segs []string, v any) any {
	if len(segs) == 0 {
		return v
	}
	var m map[string]any
	switch n := root.(type) {
	case map[string]any:
		m = n
	case []any:
		m = arrayToMap(n)
	default:
		m = map[string]any{}
	}
	m[segs[0]] = setAt(m[segs[0]], segs[1:], v)
	return m
}

// deleteAt removes the value at segs and reports whether anything changed.
func deleteAt(root any, segs []string) (any, bool) {
	if len(segs) == 0 {
		return nil, root != nil
	}
	var m map[string]any
	switch n := root.(type) {
	case map[string]any:
		m = n
	case []any:
		if _, err := strconv.Atoi(segs[0]); err != nil {
			return root, false
		}
		m = arrayToMap(n)
	default:
		return root, false
	}
	child, ok := m[segs[0]]
	if !ok {
		return root, false
	}
	if len(segs) == 1 {
		delete(m, segs[0])
		return m, true
	}
	next, changed := deleteAt(child, segs[1:])
	if !changed {
		return root, false
	}
	if next == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = next
	}
	return m, true
}

// prune drops nulls and empty objects, which the store treats as absent.
func prune(v any) any {
	switch n := v.(type) {
	case map[string]any:
		for k, child := range n {
			if p := prune(child); p == nil {
				delete(n, k)
			} else {
				n[k] = p
			}
		}
		if len(n) == 0 {
			return nil
		}
		return n
	case []any:
		empty := true
		for i, child := range n {
			n[i] = prune(child)
			if n[i] != nil {
				empty = false
			}
		}
		if empty {
			return nil
		}
		return n
	default:
		return v
	}
}
