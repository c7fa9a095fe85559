package orchestrator

import (
	"ImageChat/internal/service/conversation"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type result struct {
	ref string
	err error
}

// fakeClient отвечает тем, что тест положит в results.
type fakeClient struct {
	prompts chan string
	results chan result
}

func newFakeClient() *fakeClient {
	return &fakeClient{prompts: make(chan string, 8), results: make(chan result, 8)}
}

func (c *fakeClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.prompts <- prompt
	select {
	case r := <-c.results:
		return r.ref, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type panicClient struct{}

func (panicClient) Generate(context.Context, string) (string, error) { panic("boom") }

type emptyErr struct{}

func (emptyErr) Error() string { return "" }

func newTestOrchestrator(t *testing.T, client *fakeClient) (*Orchestrator, *conversation.Store) {
	t.Helper()
	store := conversation.New(conversation.Greeting)
	o := New(store, client, 0, zap.NewNop().Sugar())
	t.Cleanup(func() {
		o.Close()
		o.Wait()
	})
	return o, store
}

func TestSubmitPromptSuccessScenario(t *testing.T) {
	client := newFakeClient()
	o, store := newTestOrchestrator(t, client)

	require.Equal(t, 1, store.Len())
	require.Equal(t, conversation.StatusIdle, store.Lifecycle().Status)

	require.True(t, o.SubmitPrompt("a red fox in snow"))
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, conversation.Pending(), store.Lifecycle())
	assert.True(t, o.IsBusy())
	assert.Equal(t, "a red fox in snow", <-client.prompts)

	client.results <- result{ref: "ref-123"}
	o.Wait()

	assert.Equal(t, 3, store.Len())
	assert.Equal(t, conversation.Succeeded("ref-123"), store.Lifecycle())
	assert.False(t, o.IsBusy())

	last, ok := store.Snapshot().LastSystemEntry()
	require.True(t, ok)
	assert.Equal(t, SuccessNarration, last.Text)
}

func TestSubmitPromptFailureAfterSuccessScenario(t *testing.T) {
	client := newFakeClient()
	o, store := newTestOrchestrator(t, client)

	require.True(t, o.SubmitPrompt("a red fox in snow"))
	<-client.prompts
	client.results <- result{ref: "ref-123"}
	o.Wait()

	require.True(t, o.SubmitPrompt("a blue whale"))
	// прошлая картинка очищается до прихода нового результата
	lc := store.Lifecycle()
	assert.Equal(t, conversation.StatusPending, lc.Status)
	assert.Empty(t, lc.ImageRef)
	assert.Empty(t, lc.ErrorMessage)

	<-client.prompts
	client.results <- result{err: errors.New("quota exceeded")}
	o.Wait()

	assert.Equal(t, conversation.Failed("quota exceeded"), store.Lifecycle())
	require.Equal(t, 5, store.Len())
	last := store.Entries()[4]
	assert.Equal(t, conversation.SenderSystem, last.Sender)
	assert.Contains(t, last.Text, "quota exceeded")
	assert.Equal(t, FailureNarration("quota exceeded"), last.Text)
}

func TestSubmitPromptIgnoresBlankInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		client := newFakeClient()
		o, store := newTestOrchestrator(t, client)
		before := store.Snapshot()

		assert.False(t, o.SubmitPrompt(in))
		assert.Equal(t, before, store.Snapshot())
	}
}

func TestSubmitPromptTrimsText(t *testing.T) {
	client := newFakeClient()
	o, store := newTestOrchestrator(t, client)

	require.True(t, o.SubmitPrompt("  a cat  "))
	assert.Equal(t, "a cat", store.Entries()[1].Text)
	assert.Equal(t, "a cat", <-client.prompts)
	client.results <- result{ref: "r"}
}

func TestSubmitPromptWhilePendingIsNoop(t *testing.T) {
	client := newFakeClient()
	o, store := newTestOrchestrator(t, client)

	require.True(t, o.SubmitPrompt("first"))
	<-client.prompts
	before := store.Snapshot()

	assert.False(t, o.SubmitPrompt("second"))
	assert.Equal(t, before, store.Snapshot())

	client.results <- result{ref: "r1"}
	o.Wait()
	assert.Equal(t, 3, store.Len())
}

func TestEntriesGrowByTwoPerSubmission(t *testing.T) {
	client := newFakeClient()
	o, store := newTestOrchestrator(t, client)

	outcomes := []result{{ref: "a"}, {err: errors.New("x")}, {ref: "b"}, {ref: "c"}}
	for i, r := range outcomes {
		prev := store.Len()
		require.True(t, o.SubmitPrompt("prompt"))
		<-client.prompts
		client.results <- r
		o.Wait()
		assert.Equal(t, prev+2, store.Len(), "submission %d", i)
	}
	assert.Equal(t, 1+2*len(outcomes), store.Len())
}

func TestFailureWithoutMessageUsesFallback(t *testing.T) {
	client := newFakeClient()
	o, store := newTestOrchestrator(t, client)

	require.True(t, o.SubmitPrompt("something"))
	<-client.prompts
	client.results <- result{err: emptyErr{}}
	o.Wait()

	assert.Equal(t, conversation.Failed(FallbackError), store.Lifecycle())
	assert.Equal(t, FailureNarration(FallbackError), store.Entries()[2].Text)
}

func TestEmptyReferenceIsFailure(t *testing.T) {
	client := newFakeClient()
	o, store := newTestOrchestrator(t, client)

	require.True(t, o.SubmitPrompt("something"))
	<-client.prompts
	client.results <- result{ref: ""}
	o.Wait()

	lc := store.Lifecycle()
	assert.Equal(t, conversation.StatusFailed, lc.Status)
	assert.Equal(t, "generation returned no image", lc.ErrorMessage)
}

func TestPanickingClientIsReportedAsFailure(t *testing.T) {
	store := conversation.New(conversation.Greeting)
	o := New(store, panicClient{}, 0, zap.NewNop().Sugar())
	defer o.Close()

	require.True(t, o.SubmitPrompt("boom"))
	o.Wait()

	assert.Equal(t, conversation.Failed(FallbackError), store.Lifecycle())
	assert.Equal(t, 3, store.Len())
	assert.False(t, o.IsBusy())
}

func TestTimeoutIsReportedAsFailure(t *testing.T) {
	client := newFakeClient()
	store := conversation.New(conversation.Greeting)
	o := New(store, client, 20*time.Millisecond, zap.NewNop().Sugar())
	defer o.Close()

	require.True(t, o.SubmitPrompt("slow"))
	o.Wait()

	assert.Equal(t, conversation.Failed("generation timeout"), store.Lifecycle())
}

func TestResultAfterCloseIsDiscarded(t *testing.T) {
	client := newFakeClient()
	store := conversation.New(conversation.Greeting)
	o := New(store, client, 0, zap.NewNop().Sugar())

	require.True(t, o.SubmitPrompt("late"))
	<-client.prompts
	o.Close()
	store.Close()
	o.Wait()

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, conversation.Pending(), store.Lifecycle())
	assert.False(t, o.SubmitPrompt("after close"))
}

func TestResultOnTornDownStoreIsNoop(t *testing.T) {
	client := newFakeClient()
	store := conversation.New(conversation.Greeting)
	o := New(store, client, 0, zap.NewNop().Sugar())
	defer o.Close()

	require.True(t, o.SubmitPrompt("late"))
	<-client.prompts
	store.Close()
	client.results <- result{ref: "r"}
	o.Wait()

	assert.Equal(t, 2, store.Len())
}

func TestObserversNeverSeeHalfResolvedState(t *testing.T) {
	client := newFakeClient()
	o, store := newTestOrchestrator(t, client)

	var snaps []conversation.Snapshot
	store.Subscribe(func(s conversation.Snapshot) { snaps = append(snaps, s) })

	require.True(t, o.SubmitPrompt("a red fox in snow"))
	<-client.prompts
	client.results <- result{ref: "ref-123"}
	o.Wait()

	for _, s := range snaps {
		last := s.Entries[len(s.Entries)-1]
		if last.Sender == conversation.SenderSystem {
			assert.Equal(t, conversation.StatusSucceeded, s.Lifecycle.Status)
		}
		if s.Lifecycle.Status == conversation.StatusSucceeded {
			assert.Equal(t, conversation.SenderSystem, last.Sender)
		}
	}
}
