package gorouter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-insight/components/dashboard"
	"github.com/goliatone/go-insight/components/dashboard/httpapi"
)

func TestRegisterValidatesConfig(t *testing.T) {
	if err := Register(Config{}); err == nil {
		t.Fatalf("expected error when routes missing")
	}
	if err := Register(Config{Routes: newMockRegistrar()}); err == nil {
		t.Fatalf("expected error when executor missing")
	}
}

func TestRegisterDashboardRoutes(t *testing.T) {
	mock := newMockRegistrar()
	svc := startedService(t)
	if err := Register(Config{Routes: mock, API: httpapi.NewCommandExecutor(svc, nil)}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	for _, key := range []string{
		"GET:/workspaces",
		"POST:/dashboards",
		"GET:/dashboards/:id",
		"POST:/dashboards/:id/widgets/:widget/export",
		"GET:/dashboards/:id/widgets/:widget/rows/:index",
		"POST:/sources/:id/refresh",
		"GET:/audit",
	} {
		if _, ok := mock.routes[key]; !ok {
			t.Fatalf("expected route %s", key)
		}
	}
	if len(mock.streams) != 0 {
		t.Fatalf("expected no stream without broadcast hook")
	}

	ctx := newMockRequest()
	ctx.body = []byte(`{"name":"Ops"}`)
	if err := mock.routes["POST:/workspaces"](ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if ctx.status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", ctx.status)
	}
	var ws dashboard.Workspace
	if err := json.Unmarshal(ctx.out, &ws); err != nil {
		t.Fatalf("decode: %v", err)
	}

	ctx = newMockRequest()
	ctx.body = []byte(`{"workspace_id":"` + ws.ID + `","name":"Board"}`)
	_ = mock.routes["POST:/dashboards"](ctx)
	var dash dashboard.Dashboard
	_ = json.Unmarshal(ctx.out, &dash)

	ctx = newMockRequest()
	ctx.params["id"] = dash.ID
	_ = mock.routes["DELETE:/dashboards/:id"](ctx)
	if ctx.status != http.StatusConflict {
		t.Fatalf("expected 409 without confirmation, got %d", ctx.status)
	}
	ctx = newMockRequest()
	ctx.params["id"] = dash.ID
	ctx.query["confirmed"] = "true"
	_ = mock.routes["DELETE:/dashboards/:id"](ctx)
	if ctx.status != http.StatusOK {
		t.Fatalf("expected 200, got %d", ctx.status)
	}
}

func TestValidationFailureReturns400(t *testing.T) {
	mock := newMockRegistrar()
	svc := startedService(t)
	_ = Register(Config{Routes: mock, API: httpapi.NewCommandExecutor(svc, nil)})

	ctx := newMockRequest()
	ctx.body = []byte(`{"description":"no name"}`)
	_ = mock.routes["POST:/workspaces"](ctx)
	if ctx.status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", ctx.status)
	}
	if len(svc.Workspaces()) != 0 {
		t.Fatalf("expected no workspace to be created")
	}
}

func TestStreamForwardsBroadcastEvents(t *testing.T) {
	mock := newMockRegistrar()
	hook := dashboard.NewBroadcastHook()
	svc := startedService(t)
	if err := Register(Config{Routes: mock, API: httpapi.NewCommandExecutor(svc, nil), Broadcast: hook}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	handler, ok := mock.streams["/ws"]
	if !ok {
		t.Fatalf("expected websocket route")
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream := &mockStream{ctx: ctx, written: make(chan any, 1)}
	done := make(chan error, 1)
	go func() { done <- handler(stream) }()

	deadline := time.Now().Add(time.Second)
	for hook.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream never subscribed")
		}
		time.Sleep(time.Millisecond)
	}
	_ = hook.DashboardUpdated(context.Background(), dashboard.DashboardEvent{Reason: "widget.saved", DashboardID: "d1"})

	select {
	case got := <-stream.written:
		event, ok := got.(dashboard.DashboardEvent)
		if !ok || event.DashboardID != "d1" {
			t.Fatalf("unexpected event %#v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("event not forwarded")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("stream did not stop on cancel")
	}
	if !stream.closed {
		t.Fatalf("expected stream to be closed")
	}
}

func startedService(t *testing.T) *dashboard.Service {
	t.Helper()
	svc := dashboard.NewService(dashboard.Options{Store: dashboard.NewMemoryStore()})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return svc
}

// --- Test helpers ---

type mockRegistrar struct {
	routes  map[string]Handler
	streams map[string]func(Stream) error
}

func newMockRegistrar() *mockRegistrar {
	return &mockRegistrar{
		routes:  map[string]Handler{},
		streams: map[string]func(Stream) error{},
	}
}

func (m *mockRegistrar) Get(path string, h Handler)    { m.routes["GET:"+path] = h }
func (m *mockRegistrar) Post(path string, h Handler)   { m.routes["POST:"+path] = h }
func (m *mockRegistrar) Delete(path string, h Handler) { m.routes["DELETE:"+path] = h }

func (m *mockRegistrar) Stream(path string, h func(Stream) error) { m.streams[path] = h }

type mockRequest struct {
	ctx     context.Context
	headers map[string]string
	body    []byte
	out     []byte
	locals  map[any]any
	params  map[string]string
	query   map[string]string
	status  int
}

func newMockRequest() *mockRequest {
	return &mockRequest{
		ctx:     context.Background(),
		headers: map[string]string{},
		locals:  map[any]any{},
		params:  map[string]string{},
		query:   map[string]string{},
	}
}

func (m *mockRequest) Context() context.Context { return m.ctx }

func (m *mockRequest) Body() []byte { return m.body }

func (m *mockRequest) Param(name string, defaultValue ...string) string {
	return lookup(m.params, name, defaultValue)
}

func (m *mockRequest) Query(name string, defaultValue ...string) string {
	return lookup(m.query, name, defaultValue)
}

func lookup(values map[string]string, name string, defaultValue []string) string {
	if v, ok := values[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockRequest) Locals(key any, value ...any) any {
	if len(value) == 0 {
		return m.locals[key]
	}
	m.locals[key] = value[0]
	return value[0]
}

func (m *mockRequest) SetHeader(k, v string) router.Context {
	m.headers[k] = v
	return nil
}

func (m *mockRequest) Send(b []byte) error {
	m.status = http.StatusOK
	m.out = append([]byte{}, b...)
	return nil
}

func (m *mockRequest) JSON(code int, v any) error {
	m.status = code
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.out = data
	return nil
}

type mockStream struct {
	ctx     context.Context
	written chan any
	closed  bool
}

func (m *mockStream) Context() context.Context { return m.ctx }

func (m *mockStream) WriteJSON(v any) error {
	m.written <- v
	return nil
}

func (m *mockStream) Close() error {
	m.closed = true
	return nil
}

func TestDrillDownRoute(t *testing.T) {
	mock := newMockRegistrar()
	svc := startedService(t)
	if err := Register(Config{Routes: mock, API: httpapi.NewCommandExecutor(svc, nil)}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	bg := context.Background()
	ws, _ := svc.AddWorkspace(bg, dashboard.AddWorkspaceRequest{Name: "Ops"})
	dash, _ := svc.AddDashboard(bg, dashboard.AddDashboardRequest{WorkspaceID: ws.ID, Name: "Board"})
	err := svc.SaveWidget(bg, dashboard.SaveWidgetRequest{DashboardID: dash.ID, Widget: dashboard.Widget{
		ID:     "w1",
		Type:   dashboard.ChartTable,
		Title:  "Orders",
		Data:   dashboard.NewDataset([]string{"id"}, []dashboard.Row{{"id": "a"}, {"id": "b"}}),
		Config: dashboard.Configuration{DataKeys: []string{"id"}},
	}})
	if err != nil {
		t.Fatalf("save widget: %v", err)
	}

	ctx := newMockRequest()
	ctx.params["id"] = dash.ID
	ctx.params["widget"] = "w1"
	ctx.params["index"] = "1"
	if err := mock.routes["GET:/dashboards/:id/widgets/:widget/rows/:index"](ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if ctx.status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", ctx.status, ctx.out)
	}
	var row dashboard.Row
	_ = json.Unmarshal(ctx.out, &row)
	if row["id"] != "b" {
		t.Fatalf("unexpected row %+v", row)
	}

	ctx = newMockRequest()
	ctx.params["id"] = dash.ID
	ctx.params["widget"] = "w1"
	ctx.params["index"] = "nope"
	_ = mock.routes["GET:/dashboards/:id/widgets/:widget/rows/:index"](ctx)
	if ctx.status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", ctx.status)
	}
}

func TestPreviewAndEmbedRoutes(t *testing.T) {
	mock := newMockRegistrar()
	svc := startedService(t)
	exec := httpapi.NewCommandExecutor(svc, nil).WithResolver(staticResolver{})
	if err := Register(Config{Routes: mock, API: exec, EmbedBaseURL: "https://bi.example.com"}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	ctx := newMockRequest()
	ctx.body = []byte(`{"source":"s1","type":"PIE","x_axis":"status","value":"revenue"}`)
	if err := mock.routes["POST:/preview"](ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if ctx.status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", ctx.status, ctx.out)
	}
	var out dashboard.PreviewResult
	if err := json.Unmarshal(ctx.out, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Data.Rows) != 2 {
		t.Fatalf("expected 2 grouped rows, got %+v", out.Data.Rows)
	}

	ctx = newMockRequest()
	ctx.params["id"] = "d1"
	_ = mock.routes["GET:/dashboards/:id/embed"](ctx)
	var embed map[string]string
	_ = json.Unmarshal(ctx.out, &embed)
	if want := `src="https://bi.example.com/#/embed/d1"`; !strings.Contains(embed["embed_code"], want) {
		t.Fatalf("expected %s in %s", want, embed["embed_code"])
	}
}

type staticResolver struct{}

func (staticResolver) Resolve(context.Context, dashboard.SourceRef) (dashboard.Dataset, error) {
	return dashboard.NewDataset([]string{"status", "revenue"}, []dashboard.Row{
		{"status": "Active", "revenue": 10},
		{"status": "Inactive", "revenue": 4},
		{"status": "Active", "revenue": 1},
	}), nil
}
