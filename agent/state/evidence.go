package state

import "strings"

type Role string

const (
	RoleUser   Role = "user"
	RoleAI     Role = "ai"
	RoleSystem Role = "system"
)

// Evidence records the utterance that created or touched a node.
type Evidence struct {
	TurnIndex int    `json:"turn_index"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Note      string `json:"note,omitempty"`
}

const emptyID = "_empty_"

// normalize trims the raw name and case-folds it into an id.
// The trimmed original is kept as the display label.
func normalize(raw string) (id string, label string) {
	label = strings.TrimSpace(raw)
	id = strings.ToLower(label)
	if id == "" {
		return emptyID, emptyID
	}
	return id, label
}

// NormalizeID exposes the id normalization used by both trackers.
func NormalizeID(raw string) string {
	id, _ := normalize(raw)
	return id
}

func prefixNote(prefix, note string) string {
	return strings.TrimSpace(prefix + " " + note)
}
