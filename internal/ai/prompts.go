package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jkindrix/draftwise/internal/domain"
)

const validationTemplate = `You are a conversational assistant validating user responses in a chat interface.

Question asked: %q
User's answer: %q

Analyze if the answer appropriately addresses the question. Consider:
1. Does the answer relate to what was asked?
2. Is it specific and meaningful (not just generic words)?
3. Does it provide useful information?

Respond with a JSON object:
{
  "isValid": true/false,
  "feedback": "brief message to user explaining why their answer doesn't work and what you need instead",
  "acknowledgment": "brief, natural acknowledgment of what they shared (only if valid)"
}

Examples:
- If asked "What's the name of your project?" and they say "Hello my name is Derek", respond with isValid: false and feedback asking specifically for the PROJECT name, not their personal name.
- If asked about technologies and they say "i used my hands", respond with isValid: false asking for specific software, programming languages, frameworks, or tools used.
- If the answer is too vague or nonsensical, ask for more specific details.`

const summarySystem = `You are a helpful assistant that summarizes user information in a natural, conversational way.
Your task is to take the raw user input and rephrase it in a clear, professional, and easy-to-scan format.
Do NOT just repeat what the user said - show understanding by summarizing it in your own words.
Make it more readable and organized. Be concise but comprehensive.`

const summaryTemperature = 0.7

// brief describes how to write one content type.
type brief struct {
	system string
	intro  string
	fields []briefField
}

type briefField struct {
	key   string
	label string
}

var briefs = map[domain.ContentType]brief{
	domain.ContentTypeBio: {
		system: "You are a professional content writer specializing in personal bios. Create a compelling, professional bio in %s perspective. " +
			"The bio should be approximately %d words and highlight the person's skills, experience, and achievements in a natural, engaging way.",
		intro: "Create a professional bio with the following information:",
		fields: []briefField{
			{"name", "Name"},
			{"skills", "Skills"},
			{"experience", "Experience"},
			{"achievements", "Achievements"},
		},
	},
	domain.ContentTypeProject: {
		system: "You are a technical writer specializing in project documentation. Create a clear, professional project summary in %s perspective. " +
			"The summary should be approximately %d words and effectively communicate the project's objectives, technical aspects, achievements, and impact.",
		intro: "Create a project summary with the following information:",
		fields: []briefField{
			{"projectName", "Project Name"},
			{"objective", "Objective"},
			{"technologies", "Technologies"},
			{"achievements", "Achievements"},
			{"impact", "Impact"},
		},
	},
	domain.ContentTypeReflection: {
		system: "You are an educational content writer specializing in learning reflections. Create a thoughtful, insightful learning reflection in %s perspective. " +
			"The reflection should be approximately %d words and demonstrate deep understanding, critical thinking, and personal growth.",
		intro: "Create a learning reflection with the following information:",
		fields: []briefField{
			{"topic", "Topic"},
			{"context", "Context"},
			{"keyLearnings", "Key Learnings"},
			{"challenges", "Challenges"},
			{"application", "Future Application"},
		},
	},
}

func validationPrompt(question, answer string) Prompt {
	return Prompt{
		Operation: OpValidate,
		User:      fmt.Sprintf(validationTemplate, question, answer),
		JSON:      true,
	}
}

func summaryPrompt(contentType domain.ContentType, answers []domain.Answer) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Please summarize the following information about a %s in a natural, conversational way.\n", contentType)
	b.WriteString("Make it easy to read and scan. Group related information together.\n\n")
	b.WriteString("Information collected:\n")
	for _, a := range answers {
		fmt.Fprintf(&b, "%s: %s\n", a.Key, a.Value)
	}
	b.WriteString("\nProvide a brief, natural summary that shows you understand what the user shared. ")
	b.WriteString("Format it in a scannable way with bullet points or short paragraphs.")
	return Prompt{
		Operation:   OpSummarize,
		System:      summarySystem,
		User:        b.String(),
		Temperature: summaryTemperature,
	}
}

func generationPrompt(req GenerationRequest) (Prompt, error) {
	if req.RefinementPrompt != "" {
		return Prompt{
			Operation: OpRefine,
			System: fmt.Sprintf("You are a professional content editor. Take the existing content and refine it based on the user's instructions. "+
				"Maintain the same approximate word count (%d words) and %s perspective.", req.WordLimit, req.Tone),
			User: fmt.Sprintf("Refine the following content based on these instructions: %q\n\nExisting content:\n%s",
				req.RefinementPrompt, req.ExistingContent),
		}, nil
	}

	br, ok := briefs[req.ContentType]
	if !ok {
		return Prompt{}, fmt.Errorf("no generation brief for content type %q", req.ContentType)
	}
	var b strings.Builder
	b.WriteString(br.intro)
	for _, f := range br.fields {
		fmt.Fprintf(&b, "\n%s: %s", f.label, req.InputData[f.key])
	}
	return Prompt{
		Operation: OpGenerate,
		System:    fmt.Sprintf(br.system, req.Tone, req.WordLimit),
		User:      b.String(),
	}, nil
}

// sortedAnswers orders answers by key when no schedule is available.
func sortedAnswers(answers domain.AnswerSet) []domain.Answer {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.Answer, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.Answer{Key: k, Value: answers[k]})
	}
	return out
}
