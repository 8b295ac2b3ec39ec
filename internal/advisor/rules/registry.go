package rules

import "github.com/algorithm-ninja/cms/internal/advisor"

// NewDefaultRegistry returns a Registry with all built-in review rules.
func NewDefaultRegistry() *advisor.Registry {
	r := advisor.NewRegistry()
	r.Register(NewDropObjectsRule())
	r.Register(NewAddColumnDefaultRule())
	r.Register(NewSetNotNullRule())
	r.Register(NewUnboundedUpdateRule())

	return r
}
