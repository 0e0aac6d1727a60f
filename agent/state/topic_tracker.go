package state

import (
	"cmp"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
)

type TopicStatus string

const (
	TopicActive      TopicStatus = "active"
	TopicAvailable   TopicStatus = "available"
	TopicSpeculative TopicStatus = "speculative"
	TopicRejected    TopicStatus = "rejected"
	TopicDormant     TopicStatus = "dormant"
)

// TopicNode is one discourse topic. Links to other topics are ids, never pointers.
type TopicNode struct {
	ID              string      `json:"id"`
	Label           string      `json:"label"`
	Status          TopicStatus `json:"status"`
	ParentID        string      `json:"parent_id,omitempty"`
	ChildIDs        []string    `json:"child_ids,omitempty"`
	Evidence        []Evidence  `json:"evidence,omitempty"`
	LastTouchedTurn int         `json:"last_touched_turn"`
	RejectedReason  string      `json:"rejected_reason,omitempty"`
}

func (n *TopicNode) clone() TopicNode {
	out := *n
	out.ChildIDs = slices.Clone(n.ChildIDs)
	out.Evidence = slices.Clone(n.Evidence)
	return out
}

func (n *TopicNode) addEvidence(turn int, role Role, text, note string) {
	n.Evidence = append(n.Evidence, Evidence{TurnIndex: turn, Role: role, Text: text, Note: note})
}

func (n *TopicNode) addChild(id string) {
	if !slices.Contains(n.ChildIDs, id) {
		n.ChildIDs = append(n.ChildIDs, id)
	}
}

// CandidateBatch is one utterance worth of topic candidates.
type CandidateBatch struct {
	Role        Role
	Text        string
	Candidates  []string
	Speculative bool
	ParentHint  string
	Note        string
}

// Correction is an externally detected user rejection of a topic.
type Correction struct {
	Topic  string `json:"topic"`
	Reason string `json:"reason"`
}

// TopicTracker keeps the topic forest for one conversation.
// It is not safe for concurrent use; the owning session serializes calls.
type TopicTracker struct {
	cfg TrackerConfig

	turnIndex    int
	topics       map[string]*TopicNode
	order        []string // creation order, used to break ties deterministically
	activeID     string
	focusHistory []string
}

func NewTopicTracker(cfg TrackerConfig) *TopicTracker {
	if cfg.MaxTopics <= 0 {
		cfg.MaxTopics = DefaultTrackerConfig().MaxTopics
	}
	if cfg.DormantAfterTurns <= 0 {
		cfg.DormantAfterTurns = DefaultTrackerConfig().DormantAfterTurns
	}
	return &TopicTracker{
		cfg:    cfg,
		topics: make(map[string]*TopicNode, 16),
	}
}

/* ------------------------------- accessors ------------------------------- */

func (t *TopicTracker) TurnIndex() int { return t.turnIndex }

func (t *TopicTracker) ActiveTopicID() string { return t.activeID }

func (t *TopicTracker) Len() int { return len(t.topics) }

// ActiveTopic returns a copy of the focused node.
func (t *TopicTracker) ActiveTopic() (TopicNode, bool) {
	if t.activeID == "" {
		return TopicNode{}, false
	}
	return t.Topic(t.activeID)
}

// Topic looks a node up by raw name or id.
func (t *TopicTracker) Topic(name string) (TopicNode, bool) {
	id, _ := normalize(name)
	n, ok := t.topics[id]
	if !ok {
		return TopicNode{}, false
	}
	return n.clone(), true
}

// Topics returns copies of all nodes, most recently touched first.
func (t *TopicTracker) Topics() []TopicNode {
	nodes := t.ordered()
	slices.SortStableFunc(nodes, func(a, b *TopicNode) int {
		return cmp.Compare(b.LastTouchedTurn, a.LastTouchedTurn)
	})
	out := make([]TopicNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.clone())
	}
	return out
}

func (t *TopicTracker) RejectedTopics() []TopicNode {
	var out []TopicNode
	for _, n := range t.ordered() {
		if n.Status == TopicRejected {
			out = append(out, n.clone())
		}
	}
	return out
}

// FocusHistory returns the focus recorded at each turn start ("" = no focus).
func (t *TopicTracker) FocusHistory() []string {
	return slices.Clone(t.focusHistory)
}

/* ----------------------------- turn lifecycle ---------------------------- */

func (t *TopicTracker) OnTurnStart(turnIndex int) {
	t.turnIndex = turnIndex
	t.applyDormancy()
	t.focusHistory = append(t.focusHistory, t.activeID)
}

func (t *TopicTracker) applyDormancy() {
	for _, n := range t.topics {
		if n.Status == TopicActive || n.Status == TopicRejected {
			continue
		}
		if t.turnIndex-n.LastTouchedTurn >= t.cfg.DormantAfterTurns {
			n.Status = TopicDormant
		}
	}
}

/* ------------------------------ registration ----------------------------- */

func (t *TopicTracker) RegisterCandidates(batch CandidateBatch) {
	parentID := t.activeID
	if hint := strings.TrimSpace(batch.ParentHint); hint != "" {
		parentID, _ = normalize(hint)
	}

	for _, raw := range batch.Candidates {
		id, label := normalize(raw)
		node, exists := t.topics[id]

		if exists && node.Status == TopicRejected && !t.cfg.AllowRevival {
			node.addEvidence(t.turnIndex, batch.Role, batch.Text, prefixNote("(rejected-topic-mentioned)", batch.Note))
			log.Debug().Str("topic", id).Int("turn", t.turnIndex).Msg("rejected topic mentioned again")
			continue
		}

		if !exists {
			status := TopicAvailable
			if batch.Speculative {
				status = TopicSpeculative
			}
			node = &TopicNode{
				ID:              id,
				Label:           label,
				Status:          status,
				LastTouchedTurn: t.turnIndex,
			}
			if parentID != id {
				node.ParentID = parentID
			}
			node.addEvidence(t.turnIndex, batch.Role, batch.Text, batch.Note)
			t.insert(node)
			t.link(node)
			continue
		}

		node.LastTouchedTurn = t.turnIndex
		node.addEvidence(t.turnIndex, batch.Role, batch.Text, batch.Note)
		if batch.Speculative && node.Status != TopicRejected && node.Status != TopicActive {
			node.Status = TopicSpeculative
		}
		// the first parent wins; later hints never re-root a node
		if node.ParentID == "" && parentID != "" && parentID != id {
			node.ParentID = parentID
			t.link(node)
		}
	}

	t.enforceMaxTopics()
}

func (t *TopicTracker) insert(n *TopicNode) {
	t.topics[n.ID] = n
	t.order = append(t.order, n.ID)
}

func (t *TopicTracker) link(n *TopicNode) {
	if n.ParentID == "" {
		return
	}
	if parent, ok := t.topics[n.ParentID]; ok {
		parent.addChild(n.ID)
	}
}

/* ------------------------------- rejection ------------------------------- */

func (t *TopicTracker) RejectTopic(topic, reason string, role Role, text, note string) {
	id, label := normalize(topic)
	node, ok := t.topics[id]
	if !ok {
		node = &TopicNode{
			ID:              id,
			Label:           label,
			Status:          TopicRejected,
			LastTouchedTurn: t.turnIndex,
			RejectedReason:  reason,
		}
		node.addEvidence(t.turnIndex, role, text, prefixNote("(rejected-created)", note))
		t.insert(node)
	} else {
		node.Status = TopicRejected
		node.RejectedReason = reason
		node.LastTouchedTurn = t.turnIndex
		node.addEvidence(t.turnIndex, role, text, prefixNote("(rejected)", note))
	}

	if t.activeID == id {
		t.activeID = ""
	}
	t.enforceMaxTopics()
}

// ApplyUserCorrections rejects every externally supplied topic. No text analysis happens here.
func (t *TopicTracker) ApplyUserCorrections(userText string, corrections []Correction) {
	for _, c := range corrections {
		t.RejectTopic(c.Topic, c.Reason, RoleUser, userText, "")
	}
}

/* --------------------------------- focus --------------------------------- */

func (t *TopicTracker) SetFocus(topic string) {
	id, label := normalize(topic)
	node, ok := t.topics[id]
	if !ok {
		node = &TopicNode{
			ID:              id,
			Label:           label,
			Status:          TopicAvailable,
			LastTouchedTurn: t.turnIndex,
		}
		node.addEvidence(t.turnIndex, RoleSystem, "", "(focus-created)")
		t.insert(node)
	}

	if node.Status == TopicRejected && !t.cfg.AllowRevival {
		t.demoteActive()
		t.activeID = ""
		return
	}

	if t.activeID != id {
		t.demoteActive()
	}
	node.Status = TopicActive
	node.LastTouchedTurn = t.turnIndex
	t.activeID = id
	t.enforceMaxTopics()
}

func (t *TopicTracker) demoteActive() {
	if t.activeID == "" {
		return
	}
	if prev, ok := t.topics[t.activeID]; ok && prev.Status == TopicActive {
		prev.Status = TopicAvailable
	}
}

// FinalizeFocus settles this turn's focus and returns the active id ("" when none).
func (t *TopicTracker) FinalizeFocus(suggestedFocus string, fallbackToRecent bool) string {
	if strings.TrimSpace(suggestedFocus) != "" {
		t.SetFocus(suggestedFocus)
		return t.activeID
	}
	if !fallbackToRecent {
		return t.activeID
	}

	var best *TopicNode
	for _, n := range t.ordered() {
		switch n.Status {
		case TopicAvailable, TopicSpeculative, TopicActive:
		default:
			continue
		}
		if best == nil || n.LastTouchedTurn > best.LastTouchedTurn {
			best = n
		}
	}
	if best != nil {
		t.SetFocus(best.ID)
	}
	return t.activeID
}

/* -------------------------------- queries -------------------------------- */

// IsTopicConfirmed reports whether the topic may be treated as settled ground.
func (t *TopicTracker) IsTopicConfirmed(topic string) bool {
	id, _ := normalize(topic)
	n, ok := t.topics[id]
	if !ok {
		return false
	}
	return n.Status == TopicActive || n.Status == TopicAvailable
}

func (t *TopicTracker) ShouldAvoidAssertiveQuestions() bool {
	n, ok := t.topics[t.activeID]
	if !ok {
		return false
	}
	return n.Status == TopicSpeculative
}

/* -------------------------------- eviction ------------------------------- */

// enforceMaxTopics evicts the least recently touched unprotected nodes.
// ACTIVE and REJECTED nodes are protected, so the bound is soft once rejections pile up.
func (t *TopicTracker) enforceMaxTopics() {
	if len(t.topics) <= t.cfg.MaxTopics {
		return
	}

	var candidates []*TopicNode
	for _, n := range t.ordered() {
		if n.ID == t.activeID || n.Status == TopicRejected {
			continue
		}
		candidates = append(candidates, n)
	}
	slices.SortStableFunc(candidates, func(a, b *TopicNode) int {
		return cmp.Compare(a.LastTouchedTurn, b.LastTouchedTurn)
	})

	for len(t.topics) > t.cfg.MaxTopics && len(candidates) > 0 {
		victim := candidates[0]
		candidates = candidates[1:]
		t.remove(victim)
		log.Debug().Str("topic", victim.ID).Int("last_touched", victim.LastTouchedTurn).Msg("topic evicted")
	}
}

func (t *TopicTracker) remove(victim *TopicNode) {
	if parent, ok := t.topics[victim.ParentID]; ok {
		parent.ChildIDs = slices.DeleteFunc(parent.ChildIDs, func(id string) bool { return id == victim.ID })
	}
	for _, cid := range victim.ChildIDs {
		if child, ok := t.topics[cid]; ok {
			child.ParentID = ""
		}
	}
	delete(t.topics, victim.ID)
	t.order = slices.DeleteFunc(t.order, func(id string) bool { return id == victim.ID })
}

func (t *TopicTracker) ordered() []*TopicNode {
	out := make([]*TopicNode, 0, len(t.order))
	for _, id := range t.order {
		if n, ok := t.topics[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

/* ------------------------------- extraction ------------------------------ */

var bracketPairs = [][2]string{{"「", "」"}, {"『", "』"}, {"（", "）"}}

// NaiveExtractTopics pulls bracketed phrases out of text. Low precision; a
// fallback for callers without a real extractor.
func NaiveExtractTopics(text string) []string {
	if text == "" {
		return nil
	}

	var found []string
	for _, pair := range bracketPairs {
		rest := text
		for {
			i := strings.Index(rest, pair[0])
			if i < 0 {
				break
			}
			rest = rest[i+len(pair[0]):]
			j := strings.Index(rest, pair[1])
			if j < 0 {
				break
			}
			if inner := strings.TrimSpace(rest[:j]); inner != "" {
				found = append(found, inner)
			}
			rest = rest[j+len(pair[1]):]
		}
	}

	seen := make(map[string]struct{}, len(found))
	uniq := make([]string, 0, len(found))
	for _, f := range found {
		key := strings.ToLower(f)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		uniq = append(uniq, f)
	}
	return uniq
}
