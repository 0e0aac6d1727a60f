package state

import (
	"slices"

	"github.com/rs/zerolog/log"
)

type ObjectStatus string

const (
	ObjectConfirmed ObjectStatus = "confirmed"
	ObjectAssumed   ObjectStatus = "assumed"
	ObjectDenied    ObjectStatus = "denied"
	ObjectUnknown   ObjectStatus = "unknown"
)

// ObjectNode is a named entity whose existence is tracked.
type ObjectNode struct {
	ID              string       `json:"id"`
	Label           string       `json:"label"`
	Status          ObjectStatus `json:"status"`
	Evidence        []Evidence   `json:"evidence,omitempty"`
	LastUpdatedTurn int          `json:"last_updated_turn"`
}

func (n *ObjectNode) clone() ObjectNode {
	out := *n
	out.Evidence = slices.Clone(n.Evidence)
	return out
}

// ObjectRegistry gates whether a response may treat an entity as established.
// The registry is unbounded; it lives as long as its session.
type ObjectRegistry struct {
	turnIndex int
	objects   map[string]*ObjectNode
	order     []string
}

func NewObjectRegistry() *ObjectRegistry {
	return &ObjectRegistry{objects: make(map[string]*ObjectNode, 16)}
}

func (r *ObjectRegistry) OnTurnStart(turnIndex int) {
	r.turnIndex = turnIndex
}

func (r *ObjectRegistry) TurnIndex() int { return r.turnIndex }

func (r *ObjectRegistry) Object(name string) (ObjectNode, bool) {
	id, _ := normalize(name)
	n, ok := r.objects[id]
	if !ok {
		return ObjectNode{}, false
	}
	return n.clone(), true
}

// Objects returns copies in creation order.
func (r *ObjectRegistry) Objects() []ObjectNode {
	out := make([]ObjectNode, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.objects[id].clone())
	}
	return out
}

func (r *ObjectRegistry) ObjectsByStatus(status ObjectStatus) []ObjectNode {
	var out []ObjectNode
	for _, id := range r.order {
		if n := r.objects[id]; n.Status == status {
			out = append(out, n.clone())
		}
	}
	return out
}

func (r *ObjectRegistry) getOrCreate(name string, status ObjectStatus) *ObjectNode {
	id, label := normalize(name)
	if n, ok := r.objects[id]; ok {
		return n
	}
	n := &ObjectNode{ID: id, Label: label, Status: status, LastUpdatedTurn: r.turnIndex}
	r.objects[id] = n
	r.order = append(r.order, id)
	return n
}

func (r *ObjectRegistry) record(n *ObjectNode, role Role, text, note string) {
	n.Evidence = append(n.Evidence, Evidence{TurnIndex: r.turnIndex, Role: role, Text: text, Note: note})
	n.LastUpdatedTurn = r.turnIndex
}

// RegisterAssumed marks the object ASSUMED. A DENIED object keeps its status
// and only records the conflicting mention.
func (r *ObjectRegistry) RegisterAssumed(name string, role Role, text, note string) {
	n := r.getOrCreate(name, ObjectAssumed)
	if n.Status == ObjectDenied {
		r.record(n, role, text, prefixNote("(assumed-but-denied)", note))
		log.Debug().Str("object", n.ID).Int("turn", r.turnIndex).Msg("denied object assumed again")
		return
	}
	n.Status = ObjectAssumed
	r.record(n, role, text, note)
}

// Confirm overrides any prior status, DENIED included.
func (r *ObjectRegistry) Confirm(name string, role Role, text, note string) {
	n := r.getOrCreate(name, ObjectConfirmed)
	n.Status = ObjectConfirmed
	r.record(n, role, text, note)
}

func (r *ObjectRegistry) Deny(name string, role Role, text, reason string) {
	n := r.getOrCreate(name, ObjectDenied)
	n.Status = ObjectDenied
	r.record(n, role, text, prefixNote("(denied)", reason))
}

func (r *ObjectRegistry) lookup(name string) (*ObjectNode, bool) {
	id, _ := normalize(name)
	n, ok := r.objects[id]
	return n, ok
}

func (r *ObjectRegistry) CanAssumeExists(name string) bool {
	n, ok := r.lookup(name)
	return ok && n.Status == ObjectConfirmed
}

func (r *ObjectRegistry) IsDenied(name string) bool {
	n, ok := r.lookup(name)
	return ok && n.Status == ObjectDenied
}

// ShouldUseCautiousLanguage is true for unconfirmed or unknown entities.
func (r *ObjectRegistry) ShouldUseCautiousLanguage(name string) bool {
	n, ok := r.lookup(name)
	if !ok {
		return true
	}
	return n.Status == ObjectAssumed || n.Status == ObjectUnknown
}
