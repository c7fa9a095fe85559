package twitch

import (
	"ImageChat/internal/service/conversation"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	accept  bool
	prompts []string
}

func (f *fakeSubmitter) SubmitPrompt(raw string) bool {
	f.prompts = append(f.prompts, raw)
	return f.accept
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text   string
		prompt string
		ok     bool
	}{
		{"!draw a red fox in snow", "a red fox in snow", true},
		{"  !DRAW   a blue whale ", "a blue whale", true},
		{"!draw", "", false},
		{"!draw    ", "", false},
		{"!drawing a cat", "", false},
		{"hello chat", "", false},
		{"!draw https://example.com/x.png", "", false},
		{"!draw a cat https://example.com/x.png", "a cat", true},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			prompt, ok := ParseCommand("!draw", tc.text)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.prompt, prompt)
		})
	}
}

func TestRelayDropsRepeatedPromptWithinWindow(t *testing.T) {
	sub := &fakeSubmitter{accept: true}
	rl := newRelay("!draw", sub)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.handle("alice", "!draw a cat"))
	assert.False(t, rl.handle("alice", "!draw a cat"))
	assert.True(t, rl.handle("bob", "!draw a cat"))

	now = now.Add(spamWindow + time.Second)
	assert.True(t, rl.handle("alice", "!draw a cat"))
	assert.Equal(t, []string{"a cat", "a cat", "a cat"}, sub.prompts)
}

func TestRelayIgnoresNonCommands(t *testing.T) {
	sub := &fakeSubmitter{accept: true}
	rl := newRelay("!draw", sub)

	assert.False(t, rl.handle("alice", "nice stream"))
	assert.False(t, rl.handle("", "!draw a cat"))
	assert.Empty(t, sub.prompts)
}

func TestRelayRepliesToAuthorOnResult(t *testing.T) {
	store := conversation.New(conversation.Greeting)
	sub := &fakeSubmitter{accept: true}
	rl := newRelay("!draw", sub)

	require.True(t, rl.handle("alice", "!draw a red fox in snow"))

	store.AppendEntry(conversation.SenderUser, "a red fox in snow")
	store.SetLifecycle(conversation.Pending())
	_, ok := rl.reply(store.Snapshot())
	assert.False(t, ok)

	store.Batch(func(b *conversation.Batch) {
		b.AppendEntry(conversation.SenderSystem, "done")
		b.SetLifecycle(conversation.Succeeded("ref-123"))
	})
	text, ok := rl.reply(store.Snapshot())
	require.True(t, ok)
	assert.Equal(t, "@alice done", text)

	// повторный снимок без перехода ответа не даёт
	_, ok = rl.reply(store.Snapshot())
	assert.False(t, ok)
}

func TestRelayNoReplyForRejectedPrompt(t *testing.T) {
	sub := &fakeSubmitter{accept: false}
	rl := newRelay("!draw", sub)

	assert.False(t, rl.handle("alice", "!draw a cat"))

	rl.reply(conversation.Snapshot{Lifecycle: conversation.Pending()})
	_, ok := rl.reply(conversation.Snapshot{
		Entries:   []conversation.Entry{{Sender: conversation.SenderSystem, Text: "done"}},
		Lifecycle: conversation.Succeeded("r"),
	})
	assert.False(t, ok)
}
