package value

// Equal reports whether a and b are structurally equal:
// recursive element-wise comparison for containers, by-content (not
// identity) comparison for shared handles.
func Equal(a, b Value) bool {
	eq, _ := tryStructuralEqual(a, b)
	return eq
}

// tryStructuralEqual never fails: incomparable variant pairs are simply
// unequal. The bool result is unused by callers today but
// kept for symmetry with tryCompare.
func tryStructuralEqual(a, b Value) (bool, bool) {
	switch av := a.(type) {
	case NullType:
		_, ok := b.(NullType)
		return ok, true
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv, true
	case Int:
		switch bv := b.(type) {
		case Int:
			return av == bv, true
		case Float:
			return float64(av) == float64(bv), true
		}
		return false, true
	case Float:
		switch bv := b.(type) {
		case Int:
			return float64(av) == float64(bv), true
		case Float:
			return av == bv, true
		}
		return false, true
	case Range:
		bv, ok := b.(Range)
		return ok && av == bv, true
	case *String:
		bv, ok := b.(*String)
		return ok && av.value == bv.value, true
	case *List:
		bv, ok := b.(*List)
		if !ok {
			return false, true
		}
		return sequenceEqual(av.Items(), bv.Items()), true
	case *Tuple:
		bv, ok := b.(*Tuple)
		if !ok {
			return false, true
		}
		return sequenceEqual(av.items, bv.items), true
	case *Map:
		bv, ok := b.(*Map)
		if !ok {
			return false, true
		}
		return mapEqual(av, bv), true
	default:
		return a == b, true
	}
}

func sequenceEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func mapEqual(a, b *Map) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, k := range a.order {
		bv, found := b.getByKey(k)
		if !found {
			return false
		}
		if !Equal(a.items[k], bv) {
			return false
		}
	}
	return true
}

// DeepCopy recurses through aggregates, producing fresh handles with
// recursively deep-copied contents. Scalars and immutable values may be
// shared, since they can never be mutated out from under the copy.
func DeepCopy(v Value) Value {
	switch vv := v.(type) {
	case *List:
		items := make([]Value, len(vv.Items()))
		for i, item := range vv.Items() {
			items[i] = DeepCopy(item)
		}
		return NewList(items)
	case *Tuple:
		items := make([]Value, len(vv.items))
		for i, item := range vv.items {
			items[i] = DeepCopy(item)
		}
		return NewTuple(items)
	case *Map:
		return vv.deepCopy()
	case Iterator:
		return vv.DeepCopy()
	case Object:
		return vv.Copy()
	default:
		// Null, Bool, Int, Float, Range, *String, functions: immutable or
		// by-value, safe to share.
		return v
	}
}
