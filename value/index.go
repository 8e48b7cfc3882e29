package value

import "fmt"

// IndexValue implements the Index opcode's container-variant dispatch.
// Negative indices wrap from the end of the container. A Float index is
// truncated toward zero before indexing.
func IndexValue(container, idx Value) (Value, error) {
	i, err := toIndex(idx)
	if err != nil {
		return nil, err
	}
	switch c := container.(type) {
	case *List:
		v, ok := c.Get(i)
		if !ok {
			return nil, fmt.Errorf("index %d out of range (len %d)", i, c.Len())
		}
		return v, nil
	case *Tuple:
		v, ok := c.Get(i)
		if !ok {
			return nil, fmt.Errorf("index %d out of range (len %d)", i, c.Len())
		}
		return v, nil
	case *String:
		v, ok := c.Index(i)
		if !ok {
			return nil, fmt.Errorf("index %d out of range (len %d)", i, c.Len())
		}
		return v, nil
	case Range:
		n := int64(c.Len())
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, fmt.Errorf("index %d out of range (len %d)", i, n)
		}
		return NewInt(c.Start + i), nil
	case *Map:
		v, ok := c.Get(idx)
		if !ok {
			return nil, fmt.Errorf("key not found: %s", idx.String())
		}
		return v, nil
	default:
		return nil, fmt.Errorf("value of type %s is not indexable", container.Type())
	}
}

// toIndex converts an index operand to an int64, truncating Float values
// toward zero (Go's int64(float64) conversion already truncates toward
// zero).
func toIndex(idx Value) (int64, error) {
	switch v := idx.(type) {
	case Int:
		return int64(v), nil
	case Float:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("index must be a number (got %s)", idx.Type())
	}
}

// SetIndexValue implements the SetIndex opcode: container[idx] = val.
// Lists accept any index within the negative-indexing convention of
// IndexValue; Maps accept any hashable key, inserting it if absent.
// Tuples and Strings are immutable and error.
func SetIndexValue(container, idx, val Value) error {
	switch c := container.(type) {
	case *List:
		i, err := toIndex(idx)
		if err != nil {
			return err
		}
		if err := c.Set(i, val); err != nil {
			return err
		}
		return nil
	case *Map:
		return c.Insert(idx, val)
	default:
		return fmt.Errorf("value of type %s does not support index assignment", container.Type())
	}
}

// SizeOf implements the Size opcode for every Container variant.
func SizeOf(v Value) (int, error) {
	switch c := v.(type) {
	case *List:
		return c.Len(), nil
	case *Tuple:
		return c.Len(), nil
	case *String:
		return c.Len(), nil
	case *Map:
		return c.Len(), nil
	case Range:
		return c.Len(), nil
	default:
		return 0, fmt.Errorf("value of type %s has no size", v.Type())
	}
}
