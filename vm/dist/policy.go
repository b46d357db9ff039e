package dist

import "fmt"

// ImportPolicy controls which builtin namespaces an image may import before
// it is run. A nil Allowed means "allow all".
type ImportPolicy struct {
	Allowed map[string]bool // nil = allow all
	Denied  map[string]bool
}

// NewPermissivePolicy creates a policy that allows every namespace.
func NewPermissivePolicy() *ImportPolicy {
	return &ImportPolicy{}
}

// NewRestrictedPolicy creates a policy that only allows the given
// namespaces.
func NewRestrictedPolicy(allowed []string) *ImportPolicy {
	m := make(map[string]bool, len(allowed))
	for _, ns := range allowed {
		m[ns] = true
	}
	return &ImportPolicy{Allowed: m}
}

// Check verifies that every namespace the image imports is allowed.
func (p *ImportPolicy) Check(img *Image) error {
	if img == nil {
		return nil
	}
	for _, ns := range img.Namespaces() {
		if p.Denied[ns] {
			return fmt.Errorf("dist: namespace %q is explicitly denied", ns)
		}
		if p.Allowed != nil && !p.Allowed[ns] {
			return fmt.Errorf("dist: namespace %q is not allowed", ns)
		}
	}
	return nil
}

// Deny adds a namespace to the deny list.
func (p *ImportPolicy) Deny(ns string) {
	if p.Denied == nil {
		p.Denied = make(map[string]bool)
	}
	p.Denied[ns] = true
}
