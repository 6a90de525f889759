package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkindrix/draftwise/internal/conversation"
	"github.com/jkindrix/draftwise/internal/domain"
)

func TestParseChatInput(t *testing.T) {
	tests := []struct {
		name    string
		mode    conversation.Mode
		input   string
		want    chatCommand
		wantErr error
	}{
		{name: "answer while interviewing", mode: conversation.ModeInterviewing, input: "Ada Lovelace", want: chatCommand{action: actionSubmit, arg: "Ada Lovelace"}},
		{name: "answer while editing", mode: conversation.ModeEditingField, input: "Rust and Go", want: chatCommand{action: actionSubmit, arg: "Rust and Go"}},
		{name: "quit anywhere", mode: conversation.ModeInterviewing, input: "/quit", want: chatCommand{action: actionQuit}},
		{name: "quit alias", mode: conversation.ModeConfirming, input: "/Q", want: chatCommand{action: actionQuit}},
		{name: "done while confirming", mode: conversation.ModeConfirming, input: "/done", want: chatCommand{action: actionFinalize}},
		{name: "edit while confirming", mode: conversation.ModeConfirming, input: "/edit skills", want: chatCommand{action: actionEdit, arg: "skills"}},
		{name: "done too early", mode: conversation.ModeInterviewing, input: "/done", wantErr: errNotConfirming},
		{name: "edit too early", mode: conversation.ModeInterviewing, input: "/edit name", wantErr: errNotConfirming},
		{name: "free text while confirming", mode: conversation.ModeConfirming, input: "looks good", wantErr: errUseCommands},
		{name: "free text after completion", mode: conversation.ModeComplete, input: "thanks", wantErr: errSessionDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseChatInput(tt.mode, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChatInput_BadCommands(t *testing.T) {
	_, err := parseChatInput(conversation.ModeConfirming, "/edit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage")

	_, err = parseChatInput(conversation.ModeConfirming, "/publish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command /publish")
}

func TestWriteEntries_SkipsPrinted(t *testing.T) {
	entries := []domain.TranscriptEntry{
		{ID: 1, Speaker: domain.SpeakerSystem, Kind: domain.EntryGreeting, Text: "Hi"},
		{ID: 2, Speaker: domain.SpeakerSystem, Kind: domain.EntryPrompt, Text: "Name?"},
		{ID: 4, Speaker: domain.SpeakerUser, Kind: domain.EntryAnswer, Text: "Ada"},
	}
	var buf bytes.Buffer

	last := writeEntries(&buf, printer{}, entries, 1)
	assert.Equal(t, 4, last)
	assert.Equal(t, "draftwise: Name?\nYou: Ada\n", buf.String())
}

var bioLines = []string{
	"Ada Lovelace",
	"Go, distributed systems, mentoring",
	"Ten years building payment platforms",
	"Led the migration to event sourcing",
}

func TestChatCmd_PlainSessionGenerates(t *testing.T) {
	app, gen := testApp(t)
	input := strings.Join(append(bioLines, "/done"), "\n") + "\n"

	out, err := executeCmdWithInput(t, app, input, "chat", "--type", "bio", "--words", "200")
	require.NoError(t, err)

	assert.Contains(t, out, "What's your full name?")
	assert.Contains(t, out, "You: Ada Lovelace")
	assert.Contains(t, out, "Perfect, Ada!")
	assert.Contains(t, out, "/done to generate")
	assert.Contains(t, out, "Ada builds payment systems in Go.")
	assert.NotContains(t, out, "Session discarded")

	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 200, reqs[0].WordLimit)
	assert.Equal(t, domain.ToneFirstPerson, reqs[0].Tone)
	assert.Equal(t, "Ada Lovelace", reqs[0].InputData["name"])
}

func TestChatCmd_PlainSessionEditsField(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{name: "replace", answer: "Rust, compilers, tooling", want: "Rust, compilers, tooling"},
		{name: "append", answer: "Also Kubernetes operations", want: "Go, distributed systems, mentoring. Also Kubernetes operations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, gen := testApp(t)
			lines := append(append([]string{}, bioLines...),
				"/edit skills",
				tt.answer,
				"/done",
			)

			out, err := executeCmdWithInput(t, app, strings.Join(lines, "\n")+"\n", "chat")
			require.NoError(t, err)
			assert.Contains(t, out, "You: "+tt.answer)

			reqs := gen.Requests()
			require.Len(t, reqs, 1)
			assert.Equal(t, tt.want, reqs[0].InputData["skills"])
		})
	}
}

func TestChatCmd_PlainSessionReportsRejections(t *testing.T) {
	app, gen := testApp(t)

	out, err := executeCmdWithInput(t, app, "short\n/done\n/quit\n", "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "That seems a bit short")
	assert.Contains(t, out, errNotConfirming.Error())
	assert.Contains(t, out, "Session discarded.")
	assert.Empty(t, gen.Requests())
}

func TestChatCmd_PlainSessionFinalizeFailureAllowsRetry(t *testing.T) {
	app, gen := testApp(t)
	gen.err = errors.New("provider unavailable")
	input := strings.Join(append(bioLines, "/done"), "\n") + "\n"

	out, err := executeCmdWithInput(t, app, input, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "Error:")
	assert.Contains(t, out, "Session discarded.", "input ended without a generation")
	assert.Len(t, gen.Requests(), 1)
}
