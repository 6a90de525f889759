package conversation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jkindrix/draftwise/internal/domain"
)

const (
	greetingText       = "Hi! I'll help you create your content. Let's start with some questions."
	reaskPrefix        = "Let's update that. "
	keptText           = "No problem, I'll keep your previous answer."
	remoteRejectedText = "That answer doesn't quite fit the question. Could you add a bit more detail?"
	abortedText        = "That took longer than expected. Please send your answer again."
	completionFailed   = "Sorry, something went wrong while creating your content. Please try finalizing again."
	completedText      = "All set! Your content is on its way."
	finalizeLabel      = "Looks good, create my content"
)

// FallbackBullet prefixes each line of the fallback summary.
const FallbackBullet = "• "

// FallbackSummary lists every answer as "• key: value" in schedule order.
// Keys present in answers but absent from the schedule are appended last.
func FallbackSummary(schedule *domain.Schedule, answers domain.AnswerSet) string {
	lines := make([]string, 0, len(answers))
	for _, a := range answers.Ordered(schedule) {
		lines = append(lines, FallbackBullet+a.Key+": "+a.Value)
	}
	var extra []string
	for key := range answers {
		if schedule.IndexOf(key) < 0 {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		lines = append(lines, FallbackBullet+key+": "+answers[key])
	}
	return strings.Join(lines, "\n")
}

// ConfirmationText wraps a summary in the confirmation message.
func ConfirmationText(firstName, summary string) string {
	greeting := "Perfect!"
	if firstName != "" {
		greeting = fmt.Sprintf("Perfect, %s!", firstName)
	}
	return greeting + " Let me confirm what we have:\n\n" + summary +
		"\n\nLooks good? You can edit any answer or finalize."
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
