package stchunk

import "fmt"

// Scope carries the fully qualified name context down the chunk tree. It is
// a value type; deriving a child never mutates the parent.
type Scope struct {
	fqn string
}

// NewScope returns the root scope for a top-level object. An empty
// namespace is omitted without leaving a stray separator.
func NewScope(namespace, name string) Scope {
	if namespace == "" {
		return Scope{fqn: name}
	}
	return Scope{fqn: namespace + "." + name}
}

// FQN returns the scope's fully qualified name.
func (s Scope) FQN() string { return s.fqn }

// Child extends the scope by one named segment.
func (s Scope) Child(name string) Scope {
	return Scope{fqn: s.fqn + "." + name}
}

// Block extends the scope by a control-flow block segment such as
// `if_block_12`, where the number is the block's absolute start line.
func (s Scope) Block(kind string, startLine int) Scope {
	return Scope{fqn: fmt.Sprintf("%s.%s_%d", s.fqn, kind, startLine)}
}
