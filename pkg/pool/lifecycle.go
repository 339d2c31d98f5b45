package pool

// Kind identifies a poolable object family within a Registry. The four
// HTTP kinds below are predefined; applications may register additional
// kinds with their own factories.
type Kind string

const (
	// KindRequest pools HTTP request values
	KindRequest Kind = "request"
	// KindResponse pools HTTP response values
	KindResponse Kind = "response"
	// KindURI pools parsed URI values
	KindURI Kind = "uri"
	// KindStream pools body stream buffers
	KindStream Kind = "stream"
)

// Object is any pooled value. Factories must produce pointer (comparable)
// values so the pool can track overflow objects by identity.
type Object interface{}

// Factory constructs new objects for one kind. Implementations must be
// safe for concurrent use; the pool may call New from multiple goroutines.
type Factory interface {
	New() Object
}

// FactoryFunc adapts a plain function to the Factory interface.
type FactoryFunc func() Object

// New calls f.
func (f FactoryFunc) New() Object { return f() }

// Resettable is implemented by objects that re-initialize themselves with
// caller-supplied values on borrow. Objects without this capability are
// handed out as produced by the factory or as returned by the last user.
type Resettable interface {
	Reset(values map[string]interface{})
}

// Cleanable is implemented by objects that scrub per-request state before
// re-entering the free list on return.
type Cleanable interface {
	Clean()
}

// Destroyable is implemented by objects holding resources that must be
// released when the pool discards them (shrink, over-capacity return,
// or administrative reset).
type Destroyable interface {
	Destroy()
}

// BorrowParams carries caller-supplied borrow options. Values are passed
// to the object's Reset hook; Priority routes exhausted borrows through
// the reserved-capacity overflow strategy first.
type BorrowParams struct {
	Priority bool
	Values   map[string]interface{}
}

// destroy invokes the Destroyable hook if the object implements it.
func destroy(obj Object) {
	if d, ok := obj.(Destroyable); ok {
		d.Destroy()
	}
}
