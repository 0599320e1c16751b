package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoNodeType is returned by Resolve for signatures nothing handles.
var ErrNoNodeType = errors.New("no node type registered")

// Kind names an intermediate node kind, e.g. "Where" or "Count".
type Kind string

// Signature identifies an operator call without reflection.
type Signature struct {
	Declaring    string   // declaring type, e.g. "Queryable"
	Name         string   // method name, e.g. "Where"
	Arity        int      // argument count including the source
	GenericArity int      // number of generic type parameters
	TypeArgs     []string // closed instantiation, empty for the definition
}

// Definition strips the closed instantiation, so Cast<int> and Cast<T>
// map to the same entry.
func (s Signature) Definition() Signature {
	s.TypeArgs = nil
	return s
}

// IsClosed reports whether the signature carries type arguments.
func (s Signature) IsClosed() bool { return len(s.TypeArgs) > 0 }

func (s Signature) String() string {
	var b strings.Builder
	if s.Declaring != "" {
		b.WriteString(s.Declaring)
		b.WriteByte('.')
	}
	b.WriteString(s.Name)
	if s.IsClosed() {
		b.WriteString("<" + strings.Join(s.TypeArgs, ", ") + ">")
	} else if s.GenericArity > 0 {
		fmt.Fprintf(&b, "`%d", s.GenericArity)
	}
	fmt.Fprintf(&b, "(%d)", s.Arity)
	return b.String()
}

type sigKey struct {
	declaring    string
	name         string
	arity        int
	genericArity int
}

func keyOf(s Signature) sigKey {
	d := s.Definition()
	return sigKey{declaring: d.Declaring, name: d.Name, arity: d.Arity, genericArity: d.GenericArity}
}

// Registry resolves call signatures to node kinds.
type Registry interface {
	IsRegistered(sig Signature) bool
	Resolve(sig Signature) (Kind, error)
}

// SignatureRegistry matches exact signatures.
type SignatureRegistry struct {
	entries map[sigKey]Kind
}

// NewSignatureRegistry creates an empty signature registry.
func NewSignatureRegistry() *SignatureRegistry {
	return &SignatureRegistry{entries: make(map[sigKey]Kind)}
}

// Register maps every signature to kind. A later registration of the same
// signature replaces the earlier one.
func (r *SignatureRegistry) Register(kind Kind, sigs ...Signature) {
	for _, s := range sigs {
		r.entries[keyOf(s)] = kind
	}
}

func (r *SignatureRegistry) IsRegistered(sig Signature) bool {
	_, ok := r.entries[keyOf(sig)]
	return ok
}

func (r *SignatureRegistry) Resolve(sig Signature) (Kind, error) {
	kind, ok := r.entries[keyOf(sig)]
	if !ok {
		return "", notFound(sig)
	}
	return kind, nil
}

// Len returns the number of registered signatures.
func (r *SignatureRegistry) Len() int { return len(r.entries) }

// NameRegistry matches on method name only, for any declaring type and
// arity.
type NameRegistry struct {
	entries map[string]Kind
}

// NewNameRegistry creates an empty name registry.
func NewNameRegistry() *NameRegistry {
	return &NameRegistry{entries: make(map[string]Kind)}
}

// Register maps every name to kind.
func (r *NameRegistry) Register(kind Kind, names ...string) {
	for _, n := range names {
		r.entries[n] = kind
	}
}

func (r *NameRegistry) IsRegistered(sig Signature) bool {
	_, ok := r.entries[sig.Name]
	return ok
}

func (r *NameRegistry) Resolve(sig Signature) (Kind, error) {
	kind, ok := r.entries[sig.Name]
	if !ok {
		return "", notFound(sig)
	}
	return kind, nil
}

// Compound consults its registries in order; the first match wins.
type Compound []Registry

func (c Compound) IsRegistered(sig Signature) bool {
	for _, r := range c {
		if r.IsRegistered(sig) {
			return true
		}
	}
	return false
}

func (c Compound) Resolve(sig Signature) (Kind, error) {
	for _, r := range c {
		if r.IsRegistered(sig) {
			return r.Resolve(sig)
		}
	}
	return "", notFound(sig)
}

func notFound(sig Signature) error {
	return fmt.Errorf("%w for %s", ErrNoNodeType, sig)
}
