package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/quillchat/api/internal/asset"
	"github.com/quillchat/api/internal/auth"
	"github.com/quillchat/api/internal/channel"
	"github.com/quillchat/api/internal/invite"
	"github.com/quillchat/api/internal/message"
	"github.com/quillchat/api/internal/permissions"
	"github.com/quillchat/api/internal/store"
	"github.com/quillchat/api/internal/store/sqlite"
	"github.com/quillchat/api/internal/testutil"
)

type nullObjects struct{}

func (nullObjects) Put(context.Context, string, io.Reader, int64, string) error { return nil }
func (nullObjects) Remove(context.Context, string) error                        { return nil }

type testEnv struct {
	db      *sql.DB
	backend *sqlite.Backend
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.TestDB(t)
	backend := sqlite.New(db)
	gateway := &store.Gateway{
		Channels:    backend,
		Messages:    backend,
		Idempotency: backend,
		Invites:     backend,
		Assets:      backend,
		Workspaces:  backend,
		Users:       backend,
		Sessions:    backend,
	}

	assets := asset.NewService(backend, nullObjects{})
	h := New(Dependencies{
		Gateway:   gateway,
		Engine:    channel.NewMutationEngine(backend, assets, bcrypt.MinCost),
		Evaluator: permissions.NewEvaluator(backend),
		Dispatch:  message.NewDispatcher(backend, backend, message.BasicValidator{}, time.Minute),
		Emitter:   message.NewEmitter(backend),
		Invites:   invite.NewService(backend),
		Assets:    assets,
	})

	r := chi.NewRouter()
	r.Use(auth.Middleware(backend))
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth())
		r.Get("/channels/{channelID}", h.GetChannel)
		r.Patch("/channels/{channelID}", h.EditChannel)
		r.Get("/channels/{channelID}/messages", h.ListMessages)
		r.Post("/channels/{channelID}/messages", h.SendMessage)
		r.Post("/invites/token", h.CreateInviteToken)
		r.Post("/files", h.UploadFile)
	})

	return &testEnv{db: db, backend: backend, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}, extraHeaders map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not an error envelope: %s", w.Body.String())
	}
	return resp.Error.Code
}

func TestEditChannel_OwnerTransfer(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateTestUser(t, env.db, "alice", "alice@example.com")
	bob := testutil.CreateTestUser(t, env.db, "bob", "bob@example.com")
	testutil.CreateTestSession(t, env.db, alice, "alice-tok")
	chID := testutil.CreateTestGroup(t, env.db, alice, bob)

	w := env.do(t, "PATCH", "/api/channels/"+chID, "alice-tok",
		map[string]string{"owner": bob}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got channel.Channel
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.OwnerID == nil || *got.OwnerID != bob {
		t.Error("response must carry the new owner")
	}

	// The mutation narrates itself into the group.
	msgs, err := env.backend.ListMessages(context.Background(), chID, message.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Type != message.TypeSystem {
		t.Fatalf("messages = %+v, want one system message", msgs)
	}
	if msgs[0].System.Type != message.SystemOwnershipChanged {
		t.Errorf("system event = %s", msgs[0].System.Type)
	}
}

func TestEditChannel_NonOwnerDenied(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateTestUser(t, env.db, "alice", "alice@example.com")
	bob := testutil.CreateTestUser(t, env.db, "bob", "bob@example.com")
	testutil.CreateTestSession(t, env.db, bob, "bob-tok")
	chID := testutil.CreateTestGroup(t, env.db, alice, bob)

	w := env.do(t, "PATCH", "/api/channels/"+chID, "bob-tok",
		map[string]string{"name": "hijacked"}, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if code := errorCode(t, w); code != ErrCodePermissionDenied {
		t.Errorf("error code = %s", code)
	}

	ch, _ := env.backend.GetChannel(context.Background(), chID)
	if *ch.Name != "test channel" {
		t.Error("denied edit must not change the channel")
	}
}

func TestEditChannel_InvalidOperation(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateTestUser(t, env.db, "owner", "owner@example.com")
	testutil.CreateTestSession(t, env.db, owner, "owner-tok")
	wsID := testutil.CreateTestWorkspace(t, env.db, owner, 0)
	chID := testutil.CreateTestChannel(t, env.db, wsID)

	// The active toggle only exists on specialized DM variants.
	w := env.do(t, "PATCH", "/api/channels/"+chID, "owner-tok",
		map[string]bool{"active": false}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != ErrCodeInvalidOperation {
		t.Errorf("error code = %s", code)
	}
}

func TestEditChannel_SetAndRemoveConflict(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateTestUser(t, env.db, "alice", "alice@example.com")
	testutil.CreateTestSession(t, env.db, alice, "alice-tok")
	chID := testutil.CreateTestGroup(t, env.db, alice)

	w := env.do(t, "PATCH", "/api/channels/"+chID, "alice-tok",
		map[string]interface{}{"description": "x", "remove": []string{"description"}}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != ErrCodeValidationError {
		t.Errorf("error code = %s", code)
	}
}

func TestEditChannel_UnknownRemoveField(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateTestUser(t, env.db, "alice", "alice@example.com")
	testutil.CreateTestSession(t, env.db, alice, "alice-tok")
	chID := testutil.CreateTestGroup(t, env.db, alice)

	w := env.do(t, "PATCH", "/api/channels/"+chID, "alice-tok",
		map[string]interface{}{"remove": []string{"owner"}}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSendMessage_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateTestUser(t, env.db, "alice", "alice@example.com")
	bob := testutil.CreateTestUser(t, env.db, "bob", "bob@example.com")
	testutil.CreateTestSession(t, env.db, alice, "alice-tok")
	chID := testutil.CreateTestDM(t, env.db, alice, bob)

	body := map[string]string{"content": "hello"}
	headers := map[string]string{"Idempotency-Key": "tok-1"}

	first := env.do(t, "POST", "/api/channels/"+chID+"/messages", "alice-tok", body, headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("first send status = %d, body = %s", first.Code, first.Body.String())
	}
	second := env.do(t, "POST", "/api/channels/"+chID+"/messages", "alice-tok", body, headers)
	if second.Code != http.StatusCreated {
		t.Fatalf("second send status = %d", second.Code)
	}

	var m1, m2 message.Message
	if err := json.Unmarshal(first.Body.Bytes(), &m1); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(second.Body.Bytes(), &m2); err != nil {
		t.Fatal(err)
	}
	if m1.ID != m2.ID {
		t.Errorf("retry created a second message: %s vs %s", m1.ID, m2.ID)
	}

	msgs, _ := env.backend.ListMessages(context.Background(), chID, message.ListOptions{})
	if len(msgs) != 1 {
		t.Errorf("stored %d messages, want 1", len(msgs))
	}
}

func TestSendMessage_StrangerDenied(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateTestUser(t, env.db, "alice", "alice@example.com")
	bob := testutil.CreateTestUser(t, env.db, "bob", "bob@example.com")
	mallory := testutil.CreateTestUser(t, env.db, "mallory", "mallory@example.com")
	testutil.CreateTestSession(t, env.db, mallory, "mallory-tok")
	chID := testutil.CreateTestDM(t, env.db, alice, bob)

	w := env.do(t, "POST", "/api/channels/"+chID+"/messages", "mallory-tok",
		map[string]string{"content": "let me in"}, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	msgs, _ := env.backend.ListMessages(context.Background(), chID, message.ListOptions{})
	if len(msgs) != 0 {
		t.Error("denied send must not store a message")
	}
}

func TestSendMessage_EmptyRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateTestUser(t, env.db, "alice", "alice@example.com")
	bob := testutil.CreateTestUser(t, env.db, "bob", "bob@example.com")
	testutil.CreateTestSession(t, env.db, alice, "alice-tok")
	chID := testutil.CreateTestDM(t, env.db, alice, bob)

	w := env.do(t, "POST", "/api/channels/"+chID+"/messages", "alice-tok",
		map[string]string{}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != ErrCodeValidationError {
		t.Errorf("error code = %s", code)
	}
}

func TestListMessages(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateTestUser(t, env.db, "alice", "alice@example.com")
	bob := testutil.CreateTestUser(t, env.db, "bob", "bob@example.com")
	testutil.CreateTestSession(t, env.db, alice, "alice-tok")
	chID := testutil.CreateTestDM(t, env.db, alice, bob)

	for i := 0; i < 2; i++ {
		w := env.do(t, "POST", "/api/channels/"+chID+"/messages", "alice-tok",
			map[string]string{"content": "msg"}, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("send status = %d", w.Code)
		}
	}

	w := env.do(t, "GET", "/api/channels/"+chID+"/messages", "alice-tok", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Messages []message.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Messages) != 2 {
		t.Errorf("listed %d messages, want 2", len(resp.Messages))
	}
}

func TestCreateInviteToken(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateTestUser(t, env.db, "alice", "alice@example.com")
	testutil.CreateTestSession(t, env.db, alice, "alice-tok")

	first := env.do(t, "POST", "/api/invites/token", "alice-tok", nil, nil)
	if first.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", first.Code, first.Body.String())
	}
	second := env.do(t, "POST", "/api/invites/token", "alice-tok", nil, nil)
	if second.Code != http.StatusCreated {
		t.Fatalf("second status = %d", second.Code)
	}

	var t1, t2 invite.Token
	if err := json.Unmarshal(first.Body.Bytes(), &t1); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(second.Body.Bytes(), &t2); err != nil {
		t.Fatal(err)
	}
	if t1.Token == t2.Token {
		t.Error("token generation must never be idempotent")
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/channels/c1", "", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestGetChannel_NotFound(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateTestUser(t, env.db, "alice", "alice@example.com")
	testutil.CreateTestSession(t, env.db, alice, "alice-tok")

	w := env.do(t, "GET", "/api/channels/missing", "alice-tok", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if code := errorCode(t, w); code != ErrCodeNotFound {
		t.Errorf("error code = %s", code)
	}
}
