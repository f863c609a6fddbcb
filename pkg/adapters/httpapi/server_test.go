package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notebox/pkg/adapters/fs"
	"github.com/aretw0/notebox/pkg/adapters/httpapi"
	"github.com/aretw0/notebox/pkg/core"
	"github.com/aretw0/notebox/pkg/workspace"
)

type fixture struct {
	handler http.Handler
	root    string
}

func newFixture(t *testing.T, cfg fs.Config) fixture {
	t.Helper()
	root := t.TempDir()
	roots, err := workspace.NewStatic(root)
	require.NoError(t, err)

	svc := core.NewService(fs.NewRepository(cfg), nil)
	srv, err := httpapi.New(httpapi.Config{Service: svc, Roots: roots})
	require.NoError(t, err)
	return fixture{handler: srv.Handler(), root: root}
}

func (f fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", httpapi.MediaJSON)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func mustCBOR(t *testing.T, v any) []byte {
	t.Helper()
	data, err := cbor.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestREST(t *testing.T) {
	t.Run("Save List Get Delete", func(t *testing.T) {
		f := newFixture(t, fs.Config{})

		rec := f.do(t, http.MethodPost, "/api/notes", map[string]any{"id": "report", "content": "# Report\n\nbody"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		info := decode[core.NoteInfo](t, rec)
		assert.Equal(t, "report", info.ID)
		assert.Equal(t, int64(14), info.Size)

		rec = f.do(t, http.MethodGet, "/api/notes", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[[]core.NoteInfo](t, rec)
		require.Len(t, list, 1)
		assert.Equal(t, "report.md", list[0].Name)

		rec = f.do(t, http.MethodGet, "/api/notes?id=report", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		note := decode[core.Note](t, rec)
		assert.Equal(t, "# Report\n\nbody", note.Content)

		rec = f.do(t, http.MethodDelete, "/api/notes?id=report", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]bool{"deleted": true}, decode[map[string]bool](t, rec))

		rec = f.do(t, http.MethodDelete, "/api/notes?id=report", nil)
		assert.Equal(t, map[string]bool{"deleted": false}, decode[map[string]bool](t, rec))
	})

	t.Run("Empty List Is Array", func(t *testing.T) {
		f := newFixture(t, fs.Config{})
		rec := f.do(t, http.MethodGet, "/api/notes", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("Not Found", func(t *testing.T) {
		f := newFixture(t, fs.Config{})
		for _, target := range []string{"/api/notes?id=missing", "/api/notes?id=../../etc/passwd", "/api/notes?id="} {
			rec := f.do(t, http.MethodGet, target, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code, target)
			assert.JSONEq(t, `{"error":"Note not found"}`, rec.Body.String())
		}
	})

	t.Run("Bad Save Requests", func(t *testing.T) {
		f := newFixture(t, fs.Config{})
		tests := []struct {
			name string
			body any
		}{
			{"Missing ID", map[string]any{"content": "x"}},
			{"Empty ID", map[string]any{"id": "", "content": "x"}},
			{"Numeric Content", map[string]any{"id": "a", "content": 42}},
			{"Missing Content", map[string]any{"id": "a"}},
			{"Unsanitizable ID", map[string]any{"id": "???", "content": "x"}},
			{"Not An Object", []string{"a"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := f.do(t, http.MethodPost, "/api/notes", tt.body)
				assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			})
		}

		raw := []struct {
			name        string
			contentType string
			body        []byte
		}{
			{"JSON Trailing Data", httpapi.MediaJSON, []byte(`{"id":"a","content":"x"} junk`)},
			{"JSON Second Value", httpapi.MediaJSON, []byte(`{"id":"a","content":"x"}{"id":"b"}`)},
			{"CBOR Trailing Data", httpapi.MediaCBOR, append(mustCBOR(t, map[string]any{"id": "a", "content": "x"}), 0x01)},
		}
		for _, tt := range raw {
			t.Run(tt.name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodPost, "/api/notes", bytes.NewReader(tt.body))
				req.Header.Set("Content-Type", tt.contentType)
				rec := httptest.NewRecorder()
				f.handler.ServeHTTP(rec, req)
				assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			})
		}

		rec := f.do(t, http.MethodGet, "/api/notes", nil)
		assert.JSONEq(t, "[]", rec.Body.String(), "rejected saves must not create files")
	})

	t.Run("Empty Content Is Allowed", func(t *testing.T) {
		f := newFixture(t, fs.Config{})
		rec := f.do(t, http.MethodPost, "/api/notes", map[string]any{"id": "blank", "content": ""})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Read Only", func(t *testing.T) {
		f := newFixture(t, fs.Config{ReadOnly: true})
		rec := f.do(t, http.MethodPost, "/api/notes", map[string]any{"id": "a", "content": "x"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = f.do(t, http.MethodDelete, "/api/notes?id=a", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Status", func(t *testing.T) {
		f := newFixture(t, fs.Config{})
		rec := f.do(t, http.MethodGet, "/api/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		status := decode[map[string]map[string]any](t, rec)
		assert.Equal(t, "repository", status["service"]["repository_type"])
		assert.Equal(t, "flat", status["repository"]["policy"])
	})

	t.Run("Request ID Is Echoed", func(t *testing.T) {
		f := newFixture(t, fs.Config{})
		req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
		req.Header.Set(httpapi.RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Header().Get(httpapi.RequestIDHeader))
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		f := newFixture(t, fs.Config{})
		rec := f.do(t, http.MethodPut, "/api/notes", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestREST_PerAgentRoots(t *testing.T) {
	base := t.TempDir()
	roots, err := workspace.NewPerAgent(base, "")
	require.NoError(t, err)
	srv, err := httpapi.New(httpapi.Config{
		Service: core.NewService(fs.NewRepository(fs.Config{}), nil),
		Roots:   roots,
	})
	require.NoError(t, err)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader(`{"id":"plan","content":"alice"}`))
	req.Header.Set(httpapi.AgentHeader, "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/notes?id=plan&agent=bob", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, "agents must not see each other's notes")

	req = httptest.NewRequest(http.MethodGet, "/api/notes?id=plan&agent=alice", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[httpapi.Status](t, rec)
	assert.Equal(t, []string{"alice"}, status.Agents, "only agents that wrote notes have a workspace")
}

func rpc(t *testing.T, f fixture, method string, params map[string]any) httpapi.RPCResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/rpc", httpapi.RPCRequest{Method: method, Params: params})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[httpapi.RPCResponse](t, rec)
}

func TestRPC(t *testing.T) {
	f := newFixture(t, fs.Config{Resolver: &fs.PathResolver{Prefix: "notes"}})

	resp := rpc(t, f, "notes.list", nil)
	require.True(t, resp.OK)
	assert.Equal(t, map[string]any{"files": []any{}}, resp.Payload)

	resp = rpc(t, f, "notes.create", map[string]any{"path": "notes/weekly-sync.md"})
	require.True(t, resp.OK, "%+v", resp.Error)
	assert.Equal(t, "# weekly sync\n\n", resp.Payload.(map[string]any)["content"])

	resp = rpc(t, f, "notes.create", map[string]any{"path": "notes/weekly-sync.md"})
	require.False(t, resp.OK)
	assert.Equal(t, httpapi.CodeAlreadyExists, resp.Error.Code)

	resp = rpc(t, f, "notes.write", map[string]any{"path": "notes/weekly-sync.md", "content": "updated"})
	require.True(t, resp.OK)

	resp = rpc(t, f, "notes.read", map[string]any{"path": "notes/weekly-sync.md"})
	require.True(t, resp.OK)
	assert.Equal(t, "updated", resp.Payload.(map[string]any)["content"])

	resp = rpc(t, f, "notes.read", map[string]any{"path": "notes/../../etc/passwd"})
	require.False(t, resp.OK)
	assert.Equal(t, httpapi.CodeNotFound, resp.Error.Code)

	resp = rpc(t, f, "notes.write", map[string]any{"path": "notes/../x.md", "content": "x"})
	require.False(t, resp.OK)
	assert.Equal(t, httpapi.CodeInvalidParams, resp.Error.Code)

	resp = rpc(t, f, "notes.write", map[string]any{"path": "notes/x.md", "content": 7})
	require.False(t, resp.OK)
	assert.Equal(t, httpapi.CodeInvalidParams, resp.Error.Code)

	resp = rpc(t, f, "notes.read", map[string]any{})
	require.False(t, resp.OK)
	assert.Equal(t, httpapi.CodeInvalidParams, resp.Error.Code)

	resp = rpc(t, f, "notes.delete", map[string]any{"path": "notes/weekly-sync.md"})
	require.True(t, resp.OK)
	assert.Equal(t, map[string]any{"deleted": true}, resp.Payload)

	resp = rpc(t, f, "notes.rename", nil)
	require.False(t, resp.OK)
	assert.Equal(t, httpapi.CodeInvalidParams, resp.Error.Code)
}

func TestRPC_ReadOnly(t *testing.T) {
	f := newFixture(t, fs.Config{ReadOnly: true})
	resp := rpc(t, f, "notes.write", map[string]any{"path": "a", "content": "x"})
	require.False(t, resp.OK)
	assert.Equal(t, httpapi.CodeReadOnly, resp.Error.Code)
}

func TestRPC_MalformedEnvelope(t *testing.T) {
	f := newFixture(t, fs.Config{})
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[httpapi.RPCResponse](t, rec)
	assert.Equal(t, httpapi.CodeInvalidParams, resp.Error.Code)
}

func TestRPC_CBOR(t *testing.T) {
	f := newFixture(t, fs.Config{})

	call := func(method string, params map[string]any) httpapi.RPCResponse {
		data, err := cbor.Marshal(httpapi.RPCRequest{Method: method, Params: params})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(data))
		req.Header.Set("Content-Type", httpapi.MediaCBOR)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, httpapi.MediaCBOR, rec.Header().Get("Content-Type"))

		var resp httpapi.RPCResponse
		dm, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
		require.NoError(t, err)
		require.NoError(t, dm.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	resp := call("notes.write", map[string]any{"path": "draft", "content": "binary-safe transport"})
	require.True(t, resp.OK, "%+v", resp.Error)

	resp = call("notes.read", map[string]any{"path": "draft"})
	require.True(t, resp.OK)
	payload := resp.Payload.(map[string]any)
	assert.Equal(t, "binary-safe transport", payload["content"])
	assert.Equal(t, "draft.md", payload["name"])

	resp = call("notes.read", map[string]any{"path": "nope"})
	require.False(t, resp.OK)
	assert.Equal(t, httpapi.CodeNotFound, resp.Error.Code)
}

func TestServe(t *testing.T) {
	roots, err := workspace.NewStatic(t.TempDir())
	require.NoError(t, err)
	srv, err := httpapi.New(httpapi.Config{
		Service: core.NewService(fs.NewRepository(fs.Config{}), nil),
		Roots:   roots,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a })
	}()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr.String() + "/api/notes")
	require.NoError(t, err)
	_ = resp.Body.Close()
	http.DefaultClient.CloseIdleConnections()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(httpapi.RequestIDHeader))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
