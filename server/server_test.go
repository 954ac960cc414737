package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/messenger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeIngester struct {
	req *ingestion.Request
	err error
}

func (f *fakeIngester) Ingest(_ context.Context, req *ingestion.Request) (*ingestion.Result, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &ingestion.Result{
		SessionID:   "s-1",
		Collection:  req.Location.CollectionKey(req.Backend),
		Records:     len(req.Units),
		TextRecords: len(req.Units),
	}, nil
}

type fakeAsker struct {
	q   chat.Question
	err error
}

func (f *fakeAsker) Ask(_ context.Context, q chat.Question) (*chat.Answer, error) {
	f.q = q
	if f.err != nil {
		return nil, f.err
	}
	return &chat.Answer{Text: "คำตอบ", SessionID: q.SessionID, Keywords: []string{"รหัสผ่าน"}}, nil
}

type fakeLister struct{ limit int }

func (f *fakeLister) List(_ context.Context, limit int) ([]*core.Session, error) {
	f.limit = limit
	return []*core.Session{{ID: "s-1", Backend: core.BackendVectorIndex}}, nil
}

type fakeWebhook struct{ payloads []*messenger.Payload }

func (f *fakeWebhook) HandlePayload(_ context.Context, payload *messenger.Payload) {
	f.payloads = append(f.payloads, payload)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, ingester Ingester, asker Asker, opts ...Option) *Server {
	t.Helper()
	s, err := New(ingester, asker, opts...)
	require.NoError(t, err)
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func multipartUpload(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, &fakeAsker{})
	assert.ErrorIs(t, err, ErrIngesterRequired)
	_, err = New(&fakeIngester{}, nil)
	assert.ErrorIs(t, err, ErrAskerRequired)
}

func TestPingAndUnknownRoutes(t *testing.T) {
	s := newTestServer(t, &fakeIngester{}, &fakeAsker{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode(t, rec).Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeRouteNotFound, decode(t, rec).Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/query", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/webhook", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "webhook is off without a handler")
}

func TestUpload(t *testing.T) {
	ingester := &fakeIngester{}
	s := newTestServer(t, ingester, &fakeAsker{})

	req := multipartUpload(t,
		map[string]string{"db_type": "Pinecone", "index_name": "buu", "namespace": "faq"},
		map[string]string{"faq.csv": "คำถาม,คำตอบ\nลืมรหัสผ่าน,ติดต่อสำนักคอมพิวเตอร์\nไวไฟ,ใช้ BUU-WiFi\n"},
	)
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode(t, rec)
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "s-1", data["session_id"])
	assert.Equal(t, "buu/faq", data["collection"])
	assert.EqualValues(t, 2, data["records"])

	require.NotNil(t, ingester.req)
	assert.Equal(t, core.BackendVectorIndex, ingester.req.Backend)
	assert.Equal(t, ingestion.ModeReplace, ingester.req.Mode)
	assert.Equal(t, []string{"faq.csv"}, ingester.req.Files)
	require.Len(t, ingester.req.Units, 2)
	assert.Equal(t, ingestion.UnitRow, ingester.req.Units[0].Kind)
}

func TestUploadErrors(t *testing.T) {
	csv := map[string]string{"faq.csv": "q,a\nx,y\n"}
	tests := []struct {
		name       string
		fields     map[string]string
		files      map[string]string
		ingestErr  error
		wantStatus int
	}{
		{name: "no files", fields: map[string]string{"db_type": "vector_index"}, wantStatus: http.StatusBadRequest},
		{name: "unknown backend", fields: map[string]string{"db_type": "oracle"}, files: csv, wantStatus: http.StatusBadRequest},
		{name: "unknown mode", fields: map[string]string{"db_type": "vector_index", "mode": "merge"}, files: csv, wantStatus: http.StatusBadRequest},
		{name: "unsupported file", fields: map[string]string{"db_type": "vector_index"}, files: map[string]string{"deck.pptx": "x"}, wantStatus: http.StatusBadRequest},
		{name: "missing location", fields: map[string]string{"db_type": "vector_index"}, files: csv, ingestErr: core.ErrMissingLocation, wantStatus: http.StatusBadRequest},
		{name: "unknown session", fields: map[string]string{"db_type": "vector_index"}, files: csv, ingestErr: fmt.Errorf("resolve: %w", chat.ErrSessionNotFound), wantStatus: http.StatusNotFound},
		{name: "internal", fields: map[string]string{"db_type": "vector_index"}, files: csv, ingestErr: errors.New("disk full"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeIngester{err: tt.ingestErr}, &fakeAsker{})
			rec := serve(s, multipartUpload(t, tt.fields, tt.files))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			env := decode(t, rec)
			assert.NotZero(t, env.Code)
			assert.NotContains(t, env.Message, "disk full")
		})
	}
}

func TestQuery(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		asker := &fakeAsker{}
		s := newTestServer(t, &fakeIngester{}, asker)
		req := httptest.NewRequest(http.MethodPost, "/query",
			strings.NewReader(`{"session_id":"s-1","question":"ลืมรหัสผ่าน","emotion":"กังวล","user_id":"u1"}`))
		req.Header.Set("Content-Type", "application/json")

		rec := serve(s, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, chat.Question{SessionID: "s-1", UserID: "u1", Text: "ลืมรหัสผ่าน", Emotion: "กังวล"}, asker.q)

		var data map[string]any
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
		assert.Equal(t, "คำตอบ", data["response"])
	})

	t.Run("query parameters", func(t *testing.T) {
		asker := &fakeAsker{}
		s := newTestServer(t, &fakeIngester{}, asker)
		rec := serve(s, httptest.NewRequest(http.MethodPost, "/query?session_id=s-2&question=wifi", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "s-2", asker.q.SessionID)
		assert.Equal(t, "wifi", asker.q.Text)
	})

	tests := []struct {
		name       string
		target     string
		err        error
		wantStatus int
	}{
		{name: "missing session", target: "/query?question=x", wantStatus: http.StatusBadRequest},
		{name: "unknown session", target: "/query?session_id=zz&question=x", err: chat.ErrSessionNotFound, wantStatus: http.StatusNotFound},
		{name: "empty question", target: "/query?session_id=s-1", err: chat.ErrEmptyQuestion, wantStatus: http.StatusBadRequest},
		{name: "failure", target: "/query?session_id=s-1&question=x", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeIngester{}, &fakeAsker{err: tt.err})
			rec := serve(s, httptest.NewRequest(http.MethodPost, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestSessions(t *testing.T) {
	lister := &fakeLister{}
	s := newTestServer(t, &fakeIngester{}, &fakeAsker{}, WithSessions(lister))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/sessions?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, lister.limit)
	assert.Contains(t, rec.Body.String(), `"s-1"`)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/sessions?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookVerification(t *testing.T) {
	s := newTestServer(t, &fakeIngester{}, &fakeAsker{}, WithWebhook(&fakeWebhook{}, "secret"))

	rec := serve(s, httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=12345", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())

	rec = serve(s, httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid verification token", rec.Body.String())
}

func TestWebhookReceive(t *testing.T) {
	hook := &fakeWebhook{}
	s := newTestServer(t, &fakeIngester{}, &fakeAsker{}, WithWebhook(hook, "secret"))

	body := `{"object":"page","entry":[{"id":"p","messaging":[{"sender":{"id":"u1"},"message":{"mid":"m1","text":"hi"}}]}]}`
	rec := serve(s, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EVENT_RECEIVED", rec.Body.String())
	require.Len(t, hook.payloads, 1)
	assert.Equal(t, "hi", hook.payloads[0].Entry[0].Messaging[0].Message.Text)

	rec = serve(s, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"object":"user"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, hook.payloads, 1)
}
