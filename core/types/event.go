package types

// Event is a typed record of a marketplace state transition, carrying its
// payload as string attributes so downstream consumers (logs, RPC feed,
// indexers) need no schema knowledge.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attribute returns the named attribute, or "" when absent.
func (e *Event) Attribute(key string) string {
	if e == nil {
		return ""
	}
	return e.Attributes[key]
}
