package prompt

import (
	"fmt"
	"strings"

	"github.com/tanpawarit/Chative-Drift-Guard/agent/control"
)

// Hints are tracker facts that sharpen the generic directives.
type Hints struct {
	ActiveTopic             string
	CautiousObjects         []string
	DeniedObjects           []string
	RejectedTopics          []string
	AvoidAssertiveQuestions bool
}

// BuildConstraints turns an instruction into directive lines for the response
// model. Notes stay out; they are for logs only.
func BuildConstraints(instr control.TurnInstruction, hints Hints) []string {
	lines := []string{
		"You must stay within the knowledge explicitly provided in the conversation.",
		"Do not invent facts, objects, events, or intentions that were not stated by the user.",
	}

	if !instr.AllowSpeculation {
		lines = append(lines,
			"Do NOT speculate, guess, or infer beyond explicit information.",
			"If information is missing, acknowledge uncertainty briefly and stop.",
		)
	}

	if !instr.AllowQuestions {
		lines = append(lines,
			"Do NOT ask questions to the user in this response.",
			"Respond only with statements or clarifications.",
		)
	} else if hints.AvoidAssertiveQuestions {
		lines = append(lines, "If you ask a question, do not presume the answer.")
	}

	switch instr.Mode {
	case control.ModeRefocus:
		lines = append(lines, "Gently bring the conversation back to the current topic without introducing new topics.")
	case control.ModeFactOnly:
		lines = append(lines,
			"Respond using only concrete statements directly supported by the conversation.",
			"Avoid metaphors, poetic language, or symbolic interpretation.",
		)
	case control.ModeRepair:
		lines = append(lines,
			"Acknowledge any incorrect assumptions and reset the conversation state.",
			"Do not continue previous speculative threads.",
		)
	case control.ModeShortResponse:
		lines = append(lines, "Keep the response concise and minimal.")
	case control.ModeNormal, control.ModeNoQuestion:
	}

	if topic := strings.TrimSpace(hints.ActiveTopic); topic != "" {
		lines = append(lines, fmt.Sprintf("The current topic is %q.", topic))
	}
	if len(hints.RejectedTopics) > 0 {
		lines = append(lines, "Do not bring these topics back: "+strings.Join(hints.RejectedTopics, ", ")+".")
	}
	if len(hints.DeniedObjects) > 0 {
		lines = append(lines, "The user said these do not exist; never refer to them as real: "+strings.Join(hints.DeniedObjects, ", ")+".")
	}
	if len(hints.CautiousObjects) > 0 {
		lines = append(lines, "These are unconfirmed; use cautious language about them: "+strings.Join(hints.CautiousObjects, ", ")+".")
	}

	lines = append(lines, fmt.Sprintf("Limit your response length to approximately %d tokens.", instr.MaxLength))
	return lines
}

// RenderConstraints formats directive lines as a bullet block for a system message.
func RenderConstraints(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(line)
	}
	return b.String()
}
