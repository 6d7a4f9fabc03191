package node

// Command is implemented by every operation a supervisor accepts. Kind keys
// the supervisor's routing table; each node package defines a closed set of
// command types.
type Command interface {
	Kind() string
}

// SetReferenceKind is the routing key for the internal wiring command.
const SetReferenceKind = "set-reference"

// SetReference delivers a cross-node actor reference into a service's
// internal state. It is issued by the wiring coordinator only, never by
// external callers. The receiving service stores Ref under Name without
// taking ownership of the referenced actor's lifecycle.
type SetReference struct {
	// Service names the actor on this node that receives the reference.
	Service string

	// Name is the logical name the service stores the reference under.
	Name string

	// Ref is the target actor handle. Re-delivery replaces a previously
	// stored reference, which supports hot swap after a target restart.
	Ref *Ref
}

// Kind implements Command.
func (SetReference) Kind() string { return SetReferenceKind }
