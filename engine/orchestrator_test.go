package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdpilot/model"
	"mdpilot/prompt"
	"mdpilot/provider/testutil"
	"mdpilot/state"
)

// countingPauser records cooldowns without waiting.
type countingPauser struct {
	runs  atomic.Int32
	onRun func(n int)
}

func (p *countingPauser) Run(ctx context.Context, abort *atomic.Bool) {
	n := int(p.runs.Add(1))
	if p.onRun != nil {
		p.onRun(n)
	}
}

type harness struct {
	orch   *Orchestrator
	store  *state.Store
	mock   *testutil.MockProvider
	pauser *countingPauser
	notes  *testutil.Notifications
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	settings := model.DefaultSettings()
	settings.APIKey = "pplx-test"

	h := &harness{
		store:  state.New(settings),
		mock:   testutil.NewMockProvider("perplexity"),
		pauser: &countingPauser{},
		notes:  &testutil.Notifications{},
	}
	h.orch = New(Options{
		Store:          h.store,
		NewProvider:    func(model.Settings) (model.Provider, error) { return h.mock, nil },
		RequiresAPIKey: func(p string) bool { return p != "ollama" },
		Notifier:       h.notes,
		Pauser:         h.pauser,
		FlushInterval:  time.Millisecond,
	})
	return h
}

func (h *harness) addFiles(names ...string) []model.MarkdownFile {
	var files []model.MarkdownFile
	for _, n := range names {
		files = append(files, model.MarkdownFile{Name: n, Path: "/docs/" + n, Content: "# " + n})
	}
	h.store.AddFiles(files)
	return files
}

func lastUserContent(req model.ChatRequest) string {
	return req.Messages[len(req.Messages)-1].Content
}

func assertIdle(t *testing.T, store *state.Store) {
	t.Helper()
	snap := store.Snapshot()
	assert.False(t, snap.IsStreaming)
	assert.False(t, snap.IsProcessingQueue)
	assert.Nil(t, snap.FileProgress)
	assert.Nil(t, snap.ListProgress)
	assert.Nil(t, snap.QueueProgress)
	assert.Zero(t, snap.CooldownSeconds)
}

func TestSendSingleFile(t *testing.T) {
	h := newHarness(t)
	h.addFiles("readme.md")

	require.NoError(t, h.orch.Send(context.Background(), "Fix typos"))

	msgs := h.store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "Fix typos", msgs[0].Content)
	assert.Equal(t, "Mock response", msgs[1].Content)
	assert.True(t, msgs[0].AssociatedFile == "" && msgs[1].AssociatedFile == "", "single send is unscoped")

	assert.Equal(t, 1, h.mock.Calls())
	assert.Zero(t, h.pauser.runs.Load())
	assert.Contains(t, lastUserContent(h.mock.Requests()[0]), "### File: readme.md")
	assertIdle(t, h.store)
}

func TestSendAutoSavesEachBlock(t *testing.T) {
	h := newHarness(t)
	h.addFiles("readme.md")
	dir := t.TempDir()
	h.store.SetOutputFolder(dir)
	h.store.SetAutoSave(true)
	h.mock.StreamFunc = testutil.Reply(
		"Here you go:\n==== readme.md ====\n# Fixed\n==== koniec ====\n",
		"==== ../../etc/notes.md ====\nNotes\n==== koniec ====\n",
	)

	require.NoError(t, h.orch.Send(context.Background(), "Fix typos"))

	data, err := os.ReadFile(filepath.Join(dir, "readme.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Fixed", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "Notes", string(data))

	assert.Len(t, h.notes.Successes(), 2)
	assert.Empty(t, h.notes.Errors())
}

func TestSendWithoutAutoSaveWritesNothing(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	h.store.SetOutputFolder(dir)
	h.mock.StreamFunc = testutil.Reply("==== a.md ====\nA\n==== koniec ====")

	require.NoError(t, h.orch.Send(context.Background(), "go"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSendMultipleFiles(t *testing.T) {
	h := newHarness(t)
	files := h.addFiles("a.md", "b.md", "c.md")
	h.store.SetIncludeHistory(true)

	require.NoError(t, h.orch.Send(context.Background(), "first"))

	assert.Equal(t, 3, h.mock.Calls())
	assert.Equal(t, int32(2), h.pauser.runs.Load())

	for i, req := range h.mock.Requests() {
		user := lastUserContent(req)
		assert.Contains(t, user, "### File: "+files[i].Name)
		assert.Equal(t, 1, strings.Count(user, "### File: "), "one file per call")
	}

	msgs := h.store.Messages()
	require.Len(t, msgs, 6)
	for i, f := range files {
		assert.Equal(t, f.Path, msgs[2*i].AssociatedFile)
		assert.Equal(t, f.Path, msgs[2*i+1].AssociatedFile)
	}

	// A second round sees only the history of each file.
	require.NoError(t, h.orch.Send(context.Background(), "second"))
	reqs := h.mock.Requests()
	require.Len(t, reqs, 6)
	for i, req := range reqs[3:] {
		require.Len(t, req.Messages, 4, "system, one history pair, user")
		assert.Equal(t, "first", req.Messages[1].Content)
		assert.Contains(t, lastUserContent(req), files[i].Name)
	}
	assertIdle(t, h.store)
}

func TestSendTextModeIgnoresFiles(t *testing.T) {
	h := newHarness(t)
	h.addFiles("a.md", "b.md")
	mode := model.ModeText
	h.store.SetSettings(model.SettingsPatch{Mode: &mode})

	require.NoError(t, h.orch.Send(context.Background(), "What is Markdown?"))

	require.Equal(t, 1, h.mock.Calls())
	req := h.mock.Requests()[0]
	assert.Equal(t, prompt.TextSystemPrompt, req.Messages[0].Content)
	assert.Equal(t, "What is Markdown?", lastUserContent(req))
}

func TestSendPassesSettings(t *testing.T) {
	h := newHarness(t)
	temp := 0.2
	modelName := "sonar-pro"
	h.store.SetSettings(model.SettingsPatch{Temperature: &temp, Model: &modelName})

	require.NoError(t, h.orch.Send(context.Background(), "hi"))

	req := h.mock.Requests()[0]
	assert.Equal(t, "sonar-pro", req.Model)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.2, *req.Temperature)
}

func TestMissingAPIKeyRejectsBeforeMutation(t *testing.T) {
	h := newHarness(t)
	empty := ""
	h.store.SetSettings(model.SettingsPatch{APIKey: &empty})
	h.addFiles("a.md", "b.md")
	h.store.AddToQueue("q", false)
	h.store.AddListItem("item")

	assert.ErrorIs(t, h.orch.Send(context.Background(), "go"), ErrNoAPIKey)
	assert.ErrorIs(t, h.orch.ProcessQueue(context.Background()), ErrNoAPIKey)
	assert.ErrorIs(t, h.orch.ProcessListItems(context.Background()), ErrNoAPIKey)

	assert.Empty(t, h.store.Messages())
	assert.Zero(t, h.mock.Calls())
	assert.Len(t, h.notes.Errors(), 3)
	assertIdle(t, h.store)
}

func TestKeylessProvider(t *testing.T) {
	h := newHarness(t)
	empty, ollama := "", "ollama"
	h.store.SetSettings(model.SettingsPatch{APIKey: &empty, Provider: &ollama})

	require.NoError(t, h.orch.Send(context.Background(), "hi"))
	assert.Equal(t, 1, h.mock.Calls())
}

func TestNothingToProcess(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.orch.Send(context.Background(), "   "), ErrNothingToProcess)
	assert.ErrorIs(t, h.orch.ProcessQueue(context.Background()), ErrNothingToProcess)
	assert.ErrorIs(t, h.orch.ProcessListItems(context.Background()), ErrNothingToProcess)
	assert.Zero(t, h.mock.Calls())
}

func TestProcessListItems(t *testing.T) {
	h := newHarness(t)
	h.addFiles("ignored.md")
	h.store.SetListTemplate("Describe {{item}} briefly")
	h.store.AddListItems([]string{"apple", "pear", "plum", "fig"})

	require.NoError(t, h.orch.ProcessListItems(context.Background()))

	assert.Equal(t, 4, h.mock.Calls())
	assert.Equal(t, int32(3), h.pauser.runs.Load())

	items := h.store.ListItems()
	for i, req := range h.mock.Requests() {
		assert.Equal(t, prompt.ListSystemPrompt, req.Messages[0].Content)
		assert.Equal(t, "Describe "+items[i].Content+" briefly", lastUserContent(req))
		assert.NotContains(t, lastUserContent(req), "Attached Markdown Files")
	}

	msgs := h.store.Messages()
	require.Len(t, msgs, 8)
	for i, it := range items {
		assert.Equal(t, it.ID, msgs[2*i].AssociatedListItem)
		assert.Equal(t, it.ID, msgs[2*i+1].AssociatedListItem)
		assert.Empty(t, msgs[2*i+1].AssociatedFile)
	}
	assertIdle(t, h.store)
}

func TestStopQueueDuringCooldown(t *testing.T) {
	h := newHarness(t)
	h.store.AddListItems([]string{"a", "b", "c"})
	h.pauser.onRun = func(n int) {
		if n == 1 {
			h.orch.StopQueue()
		}
	}

	require.NoError(t, h.orch.ProcessListItems(context.Background()))

	assert.Equal(t, 1, h.mock.Calls())
	assert.Len(t, h.store.Messages(), 2)
	assertIdle(t, h.store)
}

func TestStopQueueMidStream(t *testing.T) {
	h := newHarness(t)
	h.store.AddListItems([]string{"a", "b", "c"})
	started := make(chan struct{})
	h.mock.StreamFunc = testutil.Hang(started, "half ", "done")

	errc := make(chan error, 1)
	go func() { errc <- h.orch.ProcessListItems(context.Background()) }()

	<-started
	assert.True(t, h.orch.Busy())
	h.orch.StopQueue()
	require.NoError(t, <-errc)

	assert.Equal(t, 1, h.mock.Calls())
	msgs := h.store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "half done", msgs[1].Content, "partial answer is kept")
	assert.NotEmpty(t, msgs[1].AssociatedListItem)
	assert.False(t, h.orch.Busy())
	assertIdle(t, h.store)
}

func TestStopOnlyCutsCurrentCall(t *testing.T) {
	h := newHarness(t)
	h.addFiles("a.md", "b.md")

	var calls atomic.Int32
	started := make(chan struct{})
	h.mock.StreamFunc = func(ctx context.Context, req model.ChatRequest, cb model.StreamCallback) error {
		if calls.Add(1) == 1 {
			return testutil.Hang(started, "cut")(ctx, req, cb)
		}
		return testutil.Reply("full")(ctx, req, cb)
	}

	errc := make(chan error, 1)
	go func() { errc <- h.orch.Send(context.Background(), "go") }()

	<-started
	h.orch.Stop()
	require.NoError(t, <-errc)

	msgs := h.store.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "cut", msgs[1].Content)
	assert.Equal(t, "full", msgs[3].Content)
}

func TestStopQueueBeforeSessionOpens(t *testing.T) {
	h := newHarness(t)
	h.store.AddListItems([]string{"a", "b", "c"})

	var built atomic.Int32
	h.orch.newProvider = func(model.Settings) (model.Provider, error) {
		if built.Add(1) == 2 {
			h.orch.StopQueue()
		}
		return h.mock, nil
	}

	require.NoError(t, h.orch.ProcessListItems(context.Background()))

	assert.Equal(t, 1, h.mock.Calls())
	msgs := h.store.Messages()
	require.Len(t, msgs, 2, "the stopped unit adds no user message")
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, msgs[0].AssociatedListItem, msgs[1].AssociatedListItem)
	assertIdle(t, h.store)
}

func TestStopBeforeFirstCallOpens(t *testing.T) {
	h := newHarness(t)
	h.orch.requiresKey = func(string) bool {
		h.orch.Stop()
		return true
	}

	require.NoError(t, h.orch.Send(context.Background(), "hi"))

	assert.Zero(t, h.mock.Calls())
	assert.Empty(t, h.store.Messages())
	assert.False(t, h.orch.Busy())
	assertIdle(t, h.store)
}

func TestStopDuringCooldownSkipsOnlyNextCall(t *testing.T) {
	h := newHarness(t)
	h.addFiles("a.md", "b.md", "c.md")
	h.pauser.onRun = func(n int) {
		if n == 1 {
			h.orch.Stop()
		}
	}

	require.NoError(t, h.orch.Send(context.Background(), "go"))

	assert.Equal(t, 2, h.mock.Calls())
	msgs := h.store.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "/docs/a.md", msgs[0].AssociatedFile)
	assert.Equal(t, "/docs/c.md", msgs[2].AssociatedFile)
}

func TestStaleStopsDoNotLeakIntoNextAction(t *testing.T) {
	h := newHarness(t)
	h.orch.Stop()
	h.orch.StopQueue()

	require.NoError(t, h.orch.Send(context.Background(), "hi"))
	assert.Len(t, h.store.Messages(), 2)

	h.store.AddListItems([]string{"a", "b"})
	require.NoError(t, h.orch.ProcessListItems(context.Background()))
	assert.Len(t, h.store.Messages(), 6)
}

func TestErrorDoesNotStopBatch(t *testing.T) {
	h := newHarness(t)
	h.addFiles("a.md", "b.md", "c.md")

	var calls atomic.Int32
	h.mock.StreamFunc = func(ctx context.Context, req model.ChatRequest, cb model.StreamCallback) error {
		if calls.Add(1) == 1 {
			return testutil.Script(model.Error("upstream 500"))(ctx, req, cb)
		}
		return testutil.Reply("ok")(ctx, req, cb)
	}

	require.NoError(t, h.orch.Send(context.Background(), "go"))

	assert.Equal(t, 3, h.mock.Calls())
	assert.Len(t, h.store.Messages(), 5, "three user messages, two answers")
	assert.Equal(t, []string{"upstream 500"}, h.notes.Errors())
	assertIdle(t, h.store)
}

func TestProcessQueueFileMajor(t *testing.T) {
	h := newHarness(t)
	h.addFiles("a.md", "b.md")
	h.store.AddToQueue("p1", false)
	h.store.AddToQueue("p2", false)

	require.NoError(t, h.orch.ProcessQueue(context.Background()))

	type call struct{ prompt, file string }
	var got []call
	for _, req := range h.mock.Requests() {
		user := lastUserContent(req)
		cmd, _, _ := strings.Cut(user, "\n")
		file := "a.md"
		if strings.Contains(user, "### File: b.md") {
			file = "b.md"
		}
		got = append(got, call{cmd, file})
	}
	assert.Equal(t, []call{{"p1", "a.md"}, {"p2", "a.md"}, {"p1", "b.md"}, {"p2", "b.md"}}, got)
	assert.Equal(t, int32(3), h.pauser.runs.Load())
	assert.Len(t, h.store.Queue(), 2, "processing never mutates the queue")
	assertIdle(t, h.store)
}

func TestProcessQueueSimple(t *testing.T) {
	h := newHarness(t)
	h.store.AddToQueue("one", false)
	h.store.AddToQueue("two", true)
	h.store.AddToQueue("three", false)

	require.NoError(t, h.orch.ProcessQueue(context.Background()))

	reqs := h.mock.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, int32(2), h.pauser.runs.Load())
	assert.Len(t, reqs[0].Messages, 2)
	assert.Len(t, reqs[1].Messages, 4, "second prompt includes the first exchange")
	assert.Len(t, reqs[2].Messages, 2)
	assert.Len(t, h.store.Queue(), 3)
}

func TestBusyRejectsSecondAction(t *testing.T) {
	h := newHarness(t)
	started := make(chan struct{})
	h.mock.StreamFunc = testutil.Hang(started)

	errc := make(chan error, 1)
	go func() { errc <- h.orch.Send(context.Background(), "first") }()
	<-started

	assert.ErrorIs(t, h.orch.Send(context.Background(), "second"), ErrBusy)

	h.orch.Stop()
	require.NoError(t, <-errc)
	assert.Len(t, h.store.Messages(), 1)
}

func TestPanicEndsBatchOnly(t *testing.T) {
	h := newHarness(t)
	h.addFiles("a.md", "b.md", "c.md")

	var built atomic.Int32
	h.orch.newProvider = func(model.Settings) (model.Provider, error) {
		if built.Add(1) == 2 {
			panic("boom")
		}
		return h.mock, nil
	}

	err := h.orch.Send(context.Background(), "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.Equal(t, 1, h.mock.Calls())
	assert.Len(t, h.notes.Errors(), 1)
	assert.False(t, h.orch.Busy())
	assertIdle(t, h.store)

	h.orch.newProvider = func(model.Settings) (model.Provider, error) { return h.mock, nil }
	require.NoError(t, h.orch.Send(context.Background(), "again"))
}

func TestProviderFactoryError(t *testing.T) {
	h := newHarness(t)
	h.orch.newProvider = func(model.Settings) (model.Provider, error) {
		return nil, errors.New("unknown provider")
	}

	require.NoError(t, h.orch.Send(context.Background(), "hi"))
	assert.Empty(t, h.store.Messages())
	assert.Len(t, h.notes.Errors(), 1)
}

func TestDefaultCooldownPublishesToStore(t *testing.T) {
	store := state.New(model.DefaultSettings())
	o := New(Options{Store: store, NewProvider: func(model.Settings) (model.Provider, error) { return nil, nil }})

	c, ok := o.pauser.(*Cooldown)
	require.True(t, ok)
	assert.Equal(t, DefaultCooldownSeconds, c.Seconds())

	var mu sync.Mutex
	var seen []int
	c.publish = func(n int) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
		store.SetCooldownSeconds(n)
	}
	var abort atomic.Bool
	abort.Store(true)
	c.Run(context.Background(), &abort)
	assert.Equal(t, []int{0}, seen)
}
