package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jnickzlim/wa-chrome-assistance/internal/runtime"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/adapters/memory"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/assist"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/controller"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/conversation"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/dsl"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/library"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server  *Server
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	lib := library.New(memory.NewKV())
	require.NoError(t, lib.Init(ctx))
	flows, err := lib.Flows(ctx)
	require.NoError(t, err)
	flows = append(flows, dsl.New("f1").
		Name("Support").
		Add("w").Message("Welcome {{customer_name}}").On("1", "p").
		Add("p").Message("Pricing info").
		MustBuild())
	require.NoError(t, lib.SaveFlows(ctx, flows))

	reg := prometheus.NewRegistry()
	hooks := observability.NewMetrics(reg).Hooks(nil)

	streams := NewStreamManager(nil)
	host := NewHost(streams)
	table := conversation.NewTable(conversation.OnChange(streams.PublishDiff))
	engine := runtime.NewEngine(lib, runtime.WithLifecycleHooks(hooks))
	ctrl := controller.New(table, engine, host, controller.WithLifecycleHooks(hooks))
	loop := assist.NewLoop(host, ctrl, assist.WithLifecycleHooks(hooks))

	s := NewServer(ctrl, lib, loop, host, streams, WithGatherer(reg))
	return &fixture{server: s, handler: s.Handler()}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestServer_StartWithoutPanelFails(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/conversations/Ana/start", `{"flow_id":"f1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	state, err := f.server.Controller.State(context.Background(), "Ana")
	require.NoError(t, err)
	assert.False(t, state.InFlow())
}

func TestServer_StartStreamsDraftAndDiff(t *testing.T) {
	f := newFixture(t)
	ch, cancel := f.server.Streams.Subscribe("Ana")
	defer cancel()

	w := f.do(t, http.MethodPost, "/conversations/Ana/start", `{"flow_id":"f1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp actionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Draft)
	assert.Equal(t, "Welcome Ana", resp.Draft.Text)
	assert.True(t, resp.View.Open)
	assert.Equal(t, "w", resp.View.NodeID)
	assert.Equal(t, []string{"1"}, resp.View.Replies)

	draft := receive(t, ch)
	assert.Equal(t, EventDraft, draft.Type)
	assert.Contains(t, string(draft.Data), "Welcome Ana")

	diff := receive(t, ch)
	assert.Equal(t, EventDiff, diff.Type)
	var d domain.StateDiff
	require.NoError(t, json.Unmarshal(diff.Data, &d))
	require.NotNil(t, d.NodeID)
	assert.Equal(t, "w", *d.NodeID)
}

func TestServer_ObserveFeedsLoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, cancel := f.server.Streams.Subscribe("")
	defer cancel()

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/assist", `{"enabled":true}`).Code)
	settings, err := f.server.Library.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.Enabled)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/conversations/Ana/start", `{"flow_id":"f1"}`).Code)
	require.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/observe", `{"conversation":"Ana","message":"1"}`).Code)

	require.NoError(t, f.server.Loop.Tick(ctx)) // switch
	require.NoError(t, f.server.Loop.Tick(ctx))

	w := f.do(t, http.MethodGet, "/conversations/Ana", "")
	require.Equal(t, http.StatusOK, w.Code)
	var view controller.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "p", view.NodeID)
	assert.Equal(t, domain.StatusDrafted, view.Status)
}

func TestServer_ErrorStatuses(t *testing.T) {
	f := newFixture(t)
	_, cancel := f.server.Streams.Subscribe("")
	defer cancel()

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/conversations/Ana/redraft", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/conversations/Ana/start", `{"flow_id":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/conversations/Ana/start", `{`).Code)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/conversations/Ana/start", `{"flow_id":"f1"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/conversations/Ana/options/3", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/conversations/Ana/options/x", "").Code)
	assert.Equal(t, http.StatusNotImplemented, f.do(t, http.MethodPost, "/conversations/Ana/rewrite", `{"mode":"refine"}`).Code)
}

func TestServer_RestartAndEditor(t *testing.T) {
	f := newFixture(t)
	ch, cancel := f.server.Streams.Subscribe("Ana")
	defer cancel()

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/conversations/Ana/start", `{"flow_id":"f1"}`).Code)
	receive(t, ch)
	receive(t, ch)

	w := f.do(t, http.MethodPut, "/conversations/Ana/editor", `{"text":"edited"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var ed controller.Editor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ed))
	assert.Equal(t, "edited", ed.Text)

	w = f.do(t, http.MethodPost, "/conversations/Ana/restart", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp actionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.View.Open)
	assert.Nil(t, resp.View.Editor)
	assert.Equal(t, EventClear, receive(t, ch).Type)

	state, err := f.server.Controller.State(context.Background(), "Ana")
	require.NoError(t, err)
	assert.Equal(t, "w", state.NodeID, "restart keeps the table entry")
}

func TestServer_Library(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/templates/faq", `{"title":"FAQ","category":"Support","content":"See FAQ"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/templates/faq", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "See FAQ")

	w = f.do(t, http.MethodGet, "/templates?q=faq", "")
	var templates []domain.Template
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &templates))
	require.Len(t, templates, 1)

	w = f.do(t, http.MethodPost, "/favorites/faq", "")
	assert.JSONEq(t, `{"favorite":true}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/suggest?text=hello+there", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sug suggestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sug))
	assert.Equal(t, "General", sug.Category)
	require.NotEmpty(t, sug.Groups)
	assert.True(t, sug.Groups[0].Favorites)
	assert.Equal(t, "General", sug.Groups[1].Category)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/templates/faq", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/templates/faq", "").Code)
}

func TestServer_PutFlowsValidates(t *testing.T) {
	f := newFixture(t)

	yamlFlows := `
- id: f2
  name: YAML flow
  startNode: a
  nodes:
    a:
      message: Pick one
      options:
        - label: Go
          next: ghost
`
	w := f.do(t, http.MethodPut, "/flows", yamlFlows)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(t, http.MethodPut, "/flows", strings.Replace(yamlFlows, "ghost", "a", 1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var flows []*domain.Flow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flows))
	require.Len(t, flows, 1)
	assert.Equal(t, domain.PolicyOptions, flows[0].Node("a").Policy)
}

func TestServer_ExportImport(t *testing.T) {
	src := newFixture(t)
	w := src.do(t, http.MethodGet, "/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	exported := w.Body.String()

	dst := newFixture(t)
	require.Equal(t, http.StatusOK, dst.do(t, http.MethodPut, "/flows", "[]").Code)
	require.Equal(t, http.StatusNoContent, dst.do(t, http.MethodPost, "/import", exported).Code)

	flows, err := dst.server.Library.Flows(context.Background())
	require.NoError(t, err)
	assert.Len(t, flows, 2)

	assert.Equal(t, http.StatusBadRequest, dst.do(t, http.MethodPost, "/import", "").Code)
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t)
	_, cancel := f.server.Streams.Subscribe("")
	defer cancel()
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/conversations/Ana/start", `{"flow_id":"f1"}`).Code)

	w := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `assistant_flow_starts_total{flow_id="f1"} 1`)
	assert.Contains(t, w.Body.String(), `assistant_drafts_total{result="ok",source="start"} 1`)
}

func TestServer_SubscribeEvents(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?conversation=Ana", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "":
				return name, data
			}
		}
	}

	name, data := readEvent()
	assert.Equal(t, "ping", name)
	assert.Equal(t, "connected", data)

	// The subscription is live once the ping arrived.
	w := f.do(t, http.MethodPost, "/conversations/Ana/start", `{"flow_id":"f1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	name, data = readEvent()
	assert.Equal(t, EventDraft, name)
	assert.Contains(t, data, "Welcome Ana")
}

func TestStreamManager_Hooks(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe("Ana")
	defer cancel()

	hooks := sm.Hooks()
	ctx := context.Background()
	hooks.OnResolutionMiss(ctx, &domain.MissEvent{
		EventBase: domain.EventBase{Type: domain.EventResolutionMiss, ConversationID: "Ana"},
		FlowID:    "f1",
		NodeID:    "w",
		Input:     "9",
	})
	hooks.OnChatSwitch(ctx, &domain.EventBase{Type: domain.EventChatSwitch, ConversationID: "Ana"})

	miss := receive(t, ch)
	assert.Equal(t, EventMiss, miss.Type)
	assert.Contains(t, string(miss.Data), `"input":"9"`)

	sw := receive(t, ch)
	assert.Equal(t, EventSwitch, sw.Type)
	assert.Contains(t, string(sw.Data), `"conversation_id":"Ana"`)
}

func TestServer_EscapedConversationID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, cancel := f.server.Streams.Subscribe("")
	defer cancel()
	f.server.Loop.SetEnabled(true)

	w := f.do(t, http.MethodPost, "/conversations/Sales%2FAna/start", `{"flow_id":"f1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp actionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Draft)
	assert.Equal(t, "Welcome Sales/Ana", resp.Draft.Text)

	require.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/observe", `{"conversation":"Sales/Ana","message":"1"}`).Code)
	require.NoError(t, f.server.Loop.Tick(ctx)) // switch
	require.NoError(t, f.server.Loop.Tick(ctx))

	state, err := f.server.Controller.State(ctx, "Sales/Ana")
	require.NoError(t, err)
	assert.Equal(t, "f1", state.FlowID)
	assert.Equal(t, "p", state.NodeID, "manual and automatic paths share one entry")

	ids, err := f.server.Controller.Table().List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, "Sales%2FAna")

	w = f.do(t, http.MethodPost, "/conversations/50%25%20off/start", `{"flow_id":"f1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Welcome 50% off", resp.Draft.Text)
}
