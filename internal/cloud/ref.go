package cloud

// Identifiable is implemented by every resource that can be referenced by id.
type Identifiable interface {
	ResourceID() string
}

// Ref is a reference to a resource given either by its identifier or as an
// already fetched object. It is resolved once at the start of an operation.
type Ref[T Identifiable] struct {
	id    string
	value *T
}

// ByID references a resource by identifier.
func ByID[T Identifiable](id string) Ref[T] {
	return Ref[T]{id: id}
}

// ByValue references an already fetched resource.
func ByValue[T Identifiable](v T) Ref[T] {
	return Ref[T]{id: v.ResourceID(), value: &v}
}

// ID returns the referenced identifier.
func (r Ref[T]) ID() string {
	return r.id
}

// Value returns the referenced object, if one was supplied.
func (r Ref[T]) Value() (T, bool) {
	if r.value == nil {
		var zero T
		return zero, false
	}
	return *r.value, true
}

// IsZero reports whether the reference is empty.
func (r Ref[T]) IsZero() bool {
	return r.id == "" && r.value == nil
}
