package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/notify"
	"github.com/mmynk/settleup/internal/reminder"
	"github.com/mmynk/settleup/internal/storage/sqlite"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	messages []notify.Message
	fail     bool
}

func (d *fakeDispatcher) Send(ctx context.Context, msg notify.Message) (notify.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return notify.Result{Failed: len(msg.Tokens)}, errors.New("push service unavailable")
	}
	d.messages = append(d.messages, msg)
	return notify.Result{Sent: len(msg.Tokens)}, nil
}

func (d *fakeDispatcher) sent() []notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Message(nil), d.messages...)
}

type testEnv struct {
	url        string
	store      *sqlite.SQLiteStore
	dispatcher *fakeDispatcher
}

// setupTestServer serves every procedure backed by a temp SQLite store and a
// recording dispatcher.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := &fakeDispatcher{}
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	reminders := reminder.NewService(store, reminder.DirectoryResolver{Directory: store}, dispatcher, reminder.WithLogger(logger))

	handler := NewHandler(Services{
		Auth:      NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, logger),
		Groups:    NewGroupService(store, reminders, logger),
		Reminders: NewReminderService(reminders, logger),
	}, jwtManager, logger)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &testEnv{url: server.URL, store: store, dispatcher: dispatcher}
}

// call invokes procedure with body, authenticating with token when non-empty.
func (e *testEnv) call(t *testing.T, procedure, token string, body map[string]any) (*structpb.Struct, error) {
	t.Helper()

	msg, err := structpb.NewStruct(body)
	if err != nil {
		t.Fatalf("bad request body: %v", err)
	}
	client := connect.NewClient[structpb.Struct, structpb.Struct](http.DefaultClient, e.url+procedure)
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}

	resp, err := client.CallUnary(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// mustCall is call that fails the test on error.
func (e *testEnv) mustCall(t *testing.T, procedure, token string, body map[string]any) *structpb.Struct {
	t.Helper()
	resp, err := e.call(t, procedure, token, body)
	if err != nil {
		t.Fatalf("%s failed: %v", procedure, err)
	}
	return resp
}

// register creates an account and returns its user ID and session token.
func (e *testEnv) register(t *testing.T, email, name string) (string, string) {
	t.Helper()
	resp := e.mustCall(t, RegisterProcedure, "", map[string]any{
		"email":        email,
		"display_name": name,
		"password":     "correct horse battery",
	})
	user := resp.GetFields()["user"].GetStructValue()
	return user.GetFields()["id"].GetStringValue(), resp.GetFields()["token"].GetStringValue()
}

// createGroup creates a group owned by token's user and returns its ID.
func (e *testEnv) createGroup(t *testing.T, token, name string, memberIDs ...string) string {
	t.Helper()
	resp := e.mustCall(t, CreateGroupProcedure, token, map[string]any{
		"name":       name,
		"member_ids": anyList(memberIDs),
	})
	return resp.GetFields()["group"].GetStructValue().GetFields()["id"].GetStringValue()
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Errorf("code = %v, want %v (err %v)", got, want, err)
	}
}

func stringsOf(v *structpb.Value) []string {
	var out []string
	for _, item := range v.GetListValue().GetValues() {
		out = append(out, item.GetStringValue())
	}
	return out
}
