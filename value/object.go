package value

import "fmt"

// BaseObject is an embeddable helper that gives host Object
// implementations sensible GetAttr/SetAttr/Copy defaults over a plain
// attribute map, the way a minimal host Object would typically be built.
type BaseObject struct {
	Name  string
	Attrs map[string]Value
}

func NewBaseObject(name string) *BaseObject {
	return &BaseObject{Name: name, Attrs: map[string]Value{}}
}

func (o *BaseObject) Type() Type       { return TypeObject }
func (o *BaseObject) TypeName() string { return o.Name }
func (o *BaseObject) String() string   { return fmt.Sprintf("object(%s)", o.Name) }
func (o *BaseObject) IsTruthy() bool   { return true }

func (o *BaseObject) GetAttr(name string) (Value, bool) {
	v, ok := o.Attrs[name]
	return v, ok
}

func (o *BaseObject) SetAttr(name string, v Value) error {
	o.Attrs[name] = v
	return nil
}

func (o *BaseObject) Copy() Object {
	attrs := make(map[string]Value, len(o.Attrs))
	for k, v := range o.Attrs {
		attrs[k] = DeepCopy(v)
	}
	return &BaseObject{Name: o.Name, Attrs: attrs}
}
