package state

import (
	"slices"
	"testing"
)

func newTracker(t *testing.T, cfg TrackerConfig) *TopicTracker {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return NewTopicTracker(cfg)
}

func mustTopic(t *testing.T, tr *TopicTracker, name string) TopicNode {
	t.Helper()
	n, ok := tr.Topic(name)
	if !ok {
		t.Fatalf("Topic(%q) missing", name)
	}
	return n
}

func TestTopicTrackerRegisterCreatesAndLinksChildren(t *testing.T) {
	t.Parallel()

	tr := newTracker(t, DefaultTrackerConfig())
	tr.OnTurnStart(0)
	tr.RegisterCandidates(CandidateBatch{Role: RoleUser, Text: "let's talk weather", Candidates: []string{" Weather "}})
	tr.SetFocus("weather")

	tr.OnTurnStart(1)
	tr.RegisterCandidates(CandidateBatch{Role: RoleAI, Text: "rain maybe", Candidates: []string{"Rain"}, Speculative: true})

	weather := mustTopic(t, tr, "WEATHER")
	if weather.Label != "Weather" {
		t.Fatalf("Label = %q, want %q", weather.Label, "Weather")
	}
	if weather.Status != TopicActive {
		t.Fatalf("weather status = %s, want active", weather.Status)
	}
	if !slices.Equal(weather.ChildIDs, []string{"rain"}) {
		t.Fatalf("ChildIDs = %v, want [rain]", weather.ChildIDs)
	}

	rain := mustTopic(t, tr, "rain")
	if rain.Status != TopicSpeculative {
		t.Fatalf("rain status = %s, want speculative", rain.Status)
	}
	if rain.ParentID != "weather" {
		t.Fatalf("rain parent = %q, want weather", rain.ParentID)
	}
	if !tr.IsTopicConfirmed("weather") || tr.IsTopicConfirmed("rain") {
		t.Fatalf("IsTopicConfirmed mismatch")
	}
}

func TestTopicTrackerNodeNeverParentsItself(t *testing.T) {
	t.Parallel()

	tr := newTracker(t, DefaultTrackerConfig())
	tr.SetFocus("cats")
	tr.RegisterCandidates(CandidateBatch{Role: RoleUser, Candidates: []string{"cats", "kittens"}})

	if got := mustTopic(t, tr, "cats").ParentID; got != "" {
		t.Fatalf("cats parent = %q, want empty", got)
	}
	if got := mustTopic(t, tr, "kittens").ParentID; got != "cats" {
		t.Fatalf("kittens parent = %q, want cats", got)
	}
}

func TestTopicTrackerEmptyCandidateNormalizes(t *testing.T) {
	t.Parallel()

	if got := NormalizeID("   "); got != "_empty_" {
		t.Fatalf("NormalizeID(blank) = %q, want _empty_", got)
	}
}

func TestTopicTrackerRejectionIsSticky(t *testing.T) {
	t.Parallel()

	tr := newTracker(t, DefaultTrackerConfig())
	tr.OnTurnStart(0)
	tr.RegisterCandidates(CandidateBatch{Role: RoleUser, Candidates: []string{"ghosts"}})
	tr.SetFocus("ghosts")

	tr.OnTurnStart(1)
	tr.ApplyUserCorrections("no, not ghosts", []Correction{{Topic: "Ghosts", Reason: "user said no"}})

	if tr.ActiveTopicID() != "" {
		t.Fatalf("ActiveTopicID = %q, want empty after rejection", tr.ActiveTopicID())
	}

	tr.OnTurnStart(2)
	tr.RegisterCandidates(CandidateBatch{Role: RoleAI, Text: "about those ghosts", Candidates: []string{"ghosts"}})
	tr.SetFocus("ghosts")

	n := mustTopic(t, tr, "ghosts")
	if n.Status != TopicRejected {
		t.Fatalf("status = %s, want rejected", n.Status)
	}
	if n.RejectedReason != "user said no" {
		t.Fatalf("RejectedReason = %q", n.RejectedReason)
	}
	if n.LastTouchedTurn != 1 {
		t.Fatalf("LastTouchedTurn = %d, want 1", n.LastTouchedTurn)
	}
	last := n.Evidence[len(n.Evidence)-1]
	if last.Note != "(rejected-topic-mentioned)" || last.TurnIndex != 2 {
		t.Fatalf("last evidence = %+v", last)
	}
	if tr.ActiveTopicID() != "" {
		t.Fatalf("focus moved onto rejected topic")
	}
	if got := len(tr.RejectedTopics()); got != 1 {
		t.Fatalf("RejectedTopics() len = %d, want 1", got)
	}
}

func TestTopicTrackerRevivalAllowed(t *testing.T) {
	t.Parallel()

	cfg := DefaultTrackerConfig()
	cfg.AllowRevival = true
	tr := newTracker(t, cfg)
	tr.RejectTopic("ghosts", "no", RoleUser, "no ghosts", "")
	tr.SetFocus("ghosts")

	if got := mustTopic(t, tr, "ghosts").Status; got != TopicActive {
		t.Fatalf("status = %s, want active", got)
	}
}

func TestTopicTrackerRefusedFocusDemotesPrevious(t *testing.T) {
	t.Parallel()

	tr := newTracker(t, DefaultTrackerConfig())
	tr.RejectTopic("ghosts", "no", RoleUser, "", "")
	tr.SetFocus("cats")
	tr.SetFocus("ghosts")

	if tr.ActiveTopicID() != "" {
		t.Fatalf("ActiveTopicID = %q, want empty", tr.ActiveTopicID())
	}
	if got := mustTopic(t, tr, "cats").Status; got != TopicAvailable {
		t.Fatalf("cats status = %s, want available", got)
	}
}

func TestTopicTrackerSingleActive(t *testing.T) {
	t.Parallel()

	tr := newTracker(t, DefaultTrackerConfig())
	for _, name := range []string{"a", "b", "c", "b"} {
		tr.SetFocus(name)
	}

	active := 0
	for _, n := range tr.Topics() {
		if n.Status == TopicActive {
			active++
		}
	}
	if active != 1 || tr.ActiveTopicID() != "b" {
		t.Fatalf("active count = %d, id = %q", active, tr.ActiveTopicID())
	}
}

func TestTopicTrackerEvictionProtectsActiveAndRejected(t *testing.T) {
	t.Parallel()

	tr := newTracker(t, TrackerConfig{MaxTopics: 2, DormantAfterTurns: 8})

	tr.OnTurnStart(0)
	tr.RegisterCandidates(CandidateBatch{Role: RoleUser, Candidates: []string{"a"}})
	tr.SetFocus("a")

	tr.OnTurnStart(1)
	tr.RejectTopic("r", "no", RoleUser, "", "")

	tr.OnTurnStart(2)
	tr.RegisterCandidates(CandidateBatch{Role: RoleUser, Candidates: []string{"b"}})

	if _, ok := tr.Topic("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if _, ok := tr.Topic("a"); !ok {
		t.Fatalf("active topic evicted")
	}
	if _, ok := tr.Topic("r"); !ok {
		t.Fatalf("rejected topic evicted")
	}
}

func TestTopicTrackerEvictionOldestFirstAndRepairsLinks(t *testing.T) {
	t.Parallel()

	tr := newTracker(t, TrackerConfig{MaxTopics: 2, DormantAfterTurns: 8})

	tr.OnTurnStart(0)
	tr.RegisterCandidates(CandidateBatch{Role: RoleUser, Candidates: []string{"parent"}})
	tr.OnTurnStart(1)
	tr.RegisterCandidates(CandidateBatch{Role: RoleUser, Candidates: []string{"child"}, ParentHint: "parent"})

	if got := mustTopic(t, tr, "parent").ChildIDs; !slices.Equal(got, []string{"child"}) {
		t.Fatalf("parent ChildIDs = %v", got)
	}

	tr.OnTurnStart(2)
	tr.RegisterCandidates(CandidateBatch{Role: RoleUser, Candidates: []string{"newest"}})

	if _, ok := tr.Topic("parent"); ok {
		t.Fatalf("oldest topic should be evicted")
	}
	if got := mustTopic(t, tr, "child").ParentID; got != "" {
		t.Fatalf("orphan ParentID = %q, want empty", got)
	}
	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tr.Len())
	}
}

func TestTopicTrackerEvictionTieBreaksOnCreationOrder(t *testing.T) {
	t.Parallel()

	tr := newTracker(t, TrackerConfig{MaxTopics: 2, DormantAfterTurns: 8})
	tr.OnTurnStart(0)
	tr.RegisterCandidates(CandidateBatch{Role: RoleUser, Candidates: []string{"first", "second", "third"}})

	if _, ok := tr.Topic("first"); ok {
		t.Fatalf("first should be evicted on tie")
	}
	for _, name := range []string{"second", "third"} {
		if _, ok := tr.Topic(name); !ok {
			t.Fatalf("%s evicted", name)
		}
	}
}

func TestTopicTrackerDormancy(t *testing.T) {
	t.Parallel()

	tr := newTracker(t, TrackerConfig{MaxTopics: 8, DormantAfterTurns: 2})
	tr.OnTurnStart(0)
	tr.RegisterCandidates(CandidateBatch{Role: RoleUser, Candidates: []string{"old", "focus"}})
	tr.SetFocus("focus")
	tr.RejectTopic("nope", "no", RoleUser, "", "")

	tr.OnTurnStart(1)
	if got := mustTopic(t, tr, "old").Status; got != TopicAvailable {
		t.Fatalf("turn 1 status = %s, want available", got)
	}

	tr.OnTurnStart(2)
	if got := mustTopic(t, tr, "old").Status; got != TopicDormant {
		t.Fatalf("turn 2 status = %s, want dormant", got)
	}
	if got := mustTopic(t, tr, "focus").Status; got != TopicActive {
		t.Fatalf("active topic went %s", got)
	}
	if got := mustTopic(t, tr, "nope").Status; got != TopicRejected {
		t.Fatalf("rejected topic went %s", got)
	}

	want := []string{"", "focus", "focus"}
	if got := tr.FocusHistory(); !slices.Equal(got, want) {
		t.Fatalf("FocusHistory() = %v, want %v", got, want)
	}
}

func TestTopicTrackerFinalizeFocusFallback(t *testing.T) {
	t.Parallel()

	tr := newTracker(t, DefaultTrackerConfig())
	tr.OnTurnStart(0)
	tr.RegisterCandidates(CandidateBatch{Role: RoleUser, Candidates: []string{"a", "b"}})
	tr.OnTurnStart(1)
	tr.RegisterCandidates(CandidateBatch{Role: RoleUser, Candidates: []string{"b"}})

	if got := tr.FinalizeFocus("", false); got != "" {
		t.Fatalf("FinalizeFocus(no fallback) = %q, want empty", got)
	}
	if got := tr.FinalizeFocus("", true); got != "b" {
		t.Fatalf("FinalizeFocus(fallback) = %q, want b", got)
	}
	if got := tr.FinalizeFocus("A", true); got != "a" {
		t.Fatalf("FinalizeFocus(suggested) = %q, want a", got)
	}
}

func TestTopicTrackerAssertiveQuestionsOnSpeculativeFocus(t *testing.T) {
	t.Parallel()

	tr := newTracker(t, DefaultTrackerConfig())
	if tr.ShouldAvoidAssertiveQuestions() {
		t.Fatalf("no focus should not avoid questions")
	}
	tr.RegisterCandidates(CandidateBatch{Role: RoleAI, Candidates: []string{"aliens"}, Speculative: true})
	tr.FinalizeFocus("", true)
	// SetFocus promotes to ACTIVE, so speculation no longer shows on the focused node
	if tr.ShouldAvoidAssertiveQuestions() {
		t.Fatalf("focused node is active, not speculative")
	}
}

func TestTopicAccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	tr := newTracker(t, DefaultTrackerConfig())
	tr.RegisterCandidates(CandidateBatch{Role: RoleUser, Text: "x", Candidates: []string{"a"}})

	n := mustTopic(t, tr, "a")
	n.Status = TopicRejected
	n.Evidence[0].Text = "mutated"

	again := mustTopic(t, tr, "a")
	if again.Status != TopicAvailable || again.Evidence[0].Text != "x" {
		t.Fatalf("accessor leaked internal state: %+v", again)
	}
}

func TestNaiveExtractTopics(t *testing.T) {
	t.Parallel()

	got := NaiveExtractTopics("「剣」の話と『Sword』、それに（剣）と「 」")
	want := []string{"剣", "Sword"}
	if !slices.Equal(got, want) {
		t.Fatalf("NaiveExtractTopics() = %v, want %v", got, want)
	}
	if NaiveExtractTopics("") != nil {
		t.Fatalf("empty text should yield nil")
	}
}
