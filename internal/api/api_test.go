package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bosocmputer/doubtsolver/internal/ai"
	"github.com/bosocmputer/doubtsolver/internal/auth"
	"github.com/bosocmputer/doubtsolver/internal/chat"
	"github.com/bosocmputer/doubtsolver/internal/common"
	"github.com/bosocmputer/doubtsolver/internal/doubt"
	"github.com/bosocmputer/doubtsolver/internal/ocr"
	"github.com/bosocmputer/doubtsolver/internal/storage"
)

type stubTutor struct{}

func (stubTutor) Name() string { return "stub" }

func (stubTutor) SolveText(context.Context, string, string, *common.RequestContext) (*ai.Answer, *common.TokenUsage, error) {
	return &ai.Answer{Solution: "x = 2", Steps: []string{"Step 1: subtract 3 from both sides"}, GeneratedAt: time.Now().UTC()}, nil, nil
}

func (t stubTutor) SolveImage(ctx context.Context, q, s string, _ []byte, _ string, rc *common.RequestContext) (*ai.Answer, *common.TokenUsage, error) {
	return t.SolveText(ctx, q, s, rc)
}

type stubOCR struct {
	lastData []byte
}

func (s *stubOCR) Extract(_ context.Context, data []byte) ocr.ExtractionOutcome {
	s.lastData = data
	avg := 80.0
	return ocr.ExtractionOutcome{
		ExtractedText:     "hello world",
		ConfidenceScores:  []int{80, 80},
		PreprocessingUsed: ocr.StrategyOriginal,
		Success:           true,
		WordCount:         2,
		AverageConfidence: &avg,
	}
}

func (s *stubOCR) Validate(data []byte) ocr.ValidationResult {
	s.lastData = data
	return ocr.ValidationResult{Valid: true, Format: "png", Width: 4, Height: 4, ColorMode: "L"}
}

func (s *stubOCR) LocateRegions(_ context.Context, data []byte) []ocr.TextRegion {
	s.lastData = data
	return []ocr.TextRegion{{Text: "hello", Confidence: 90, BBox: ocr.BoundingBox{X: 1, Y: 2, Width: 3, Height: 4}}}
}

type testServer struct {
	router *gin.Engine
	ocr    *stubOCR
	store  *storage.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStore()
	ocrStub := &stubOCR{}
	h := NewHandler(Deps{
		Auth:           auth.NewService(store, "test-secret", time.Hour, time.Minute),
		Doubts:         doubt.NewService(store, ocrStub, stubTutor{}),
		Chat:           chat.NewService(store),
		OCR:            ocrStub,
		Status:         store,
		MaxUploadBytes: 1024,
		OCRTimeout:     time.Second,
	})
	return &testServer{router: NewRouter(h, "*"), ocr: ocrStub, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Asha", "email": email, "password": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	var resp authResponse
	decode(t, w, &resp)
	return resp.AccessToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	decode(t, w, &body)
	return body.Detail
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != `{"message":"DoubSolver API is running","version":"1.0.0"}` {
		t.Fatalf("GET /api/ = %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}

	w = s.do(t, http.MethodOptions, "/api/doubts/", "", nil)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("OPTIONS = %d %v", w.Code, w.Header())
	}
}

func TestStatusChecks(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(t, http.MethodPost, "/api/status", "", gin.H{}); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty status check = %d", w.Code)
	}
	w := s.do(t, http.MethodPost, "/api/status", "", gin.H{"client_name": "uptime-monitor"})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/status = %d %s", w.Code, w.Body.String())
	}

	var checks []storage.StatusCheck
	w = s.do(t, http.MethodGet, "/api/status", "", nil)
	decode(t, w, &checks)
	if len(checks) != 1 || checks[0].ClientName != "uptime-monitor" || checks[0].ID == "" {
		t.Fatalf("GET /api/status = %+v", checks)
	}
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "asha@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		detail string
	}{
		{"duplicate email", http.MethodPost, "/api/auth/register", "", gin.H{"name": "A", "email": "asha@example.com", "password": "x"}, http.StatusBadRequest, "User with this email already exists"},
		{"invalid email", http.MethodPost, "/api/auth/register", "", gin.H{"name": "A", "email": "nope", "password": "x"}, http.StatusUnprocessableEntity, ""},
		{"wrong password", http.MethodPost, "/api/auth/login", "", gin.H{"email": "asha@example.com", "password": "bad"}, http.StatusUnauthorized, "Invalid credentials"},
		{"login", http.MethodPost, "/api/auth/login", "", gin.H{"email": "asha@example.com", "password": "secret"}, http.StatusOK, ""},
		{"me without token", http.MethodGet, "/api/auth/me", "", nil, http.StatusUnauthorized, "Authentication required"},
		{"me", http.MethodGet, "/api/auth/me", token, nil, http.StatusOK, ""},
		{"logout", http.MethodPost, "/api/auth/logout", token, nil, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.token, tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.detail != "" {
				if got := detail(t, w); got != tt.detail {
					t.Fatalf("detail = %q, want %q", got, tt.detail)
				}
			}
		})
	}

	t.Run("login response shape", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "asha@example.com", "password": "secret"})
		var resp map[string]any
		decode(t, w, &resp)
		if resp["token_type"] != "bearer" || resp["message"] != "Login successful" || resp["access_token"] == "" {
			t.Fatalf("login response = %v", resp)
		}
		user := resp["user"].(map[string]any)
		if _, leaked := user["password_hash"]; leaked || user["email"] != "asha@example.com" {
			t.Fatalf("user = %v", user)
		}
	})
}

func TestDoubtEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "asha@example.com")
	other := s.register(t, "bo@example.com")

	w := s.do(t, http.MethodPost, "/api/doubts/", token, gin.H{"question": "Solve 2x+3=7", "subject": "math"})
	if w.Code != http.StatusOK {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	var created storage.Doubt
	decode(t, w, &created)
	if created.Status != storage.StatusAnswered || created.Answer == nil || created.Answer.Solution != "x = 2" {
		t.Fatalf("created = %+v", created)
	}

	t.Run("list", func(t *testing.T) {
		var doubts []storage.Doubt
		decode(t, s.do(t, http.MethodGet, "/api/doubts/?skip=0&limit=10", token, nil), &doubts)
		if len(doubts) != 1 || doubts[0].ID != created.ID {
			t.Fatalf("list = %+v", doubts)
		}
		if w := s.do(t, http.MethodGet, "/api/doubts/?limit=-1", token, nil); w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("negative limit = %d", w.Code)
		}
	})

	t.Run("get", func(t *testing.T) {
		if w := s.do(t, http.MethodGet, "/api/doubts/"+created.ID, token, nil); w.Code != http.StatusOK {
			t.Fatalf("get = %d", w.Code)
		}
		w := s.do(t, http.MethodGet, "/api/doubts/"+created.ID, other, nil)
		if w.Code != http.StatusNotFound || detail(t, w) != "Doubt not found" {
			t.Fatalf("get as other user = %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("image doubt", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/doubts/", token, gin.H{"question": "q", "subject": "math", "question_type": "image", "image_data": "***"})
		if w.Code != http.StatusBadRequest || detail(t, w) != "Invalid image data" {
			t.Fatalf("bad image = %d %s", w.Code, w.Body.String())
		}
		w = s.do(t, http.MethodPost, "/api/doubts/", token, gin.H{"question": "q", "subject": "math", "question_type": "video"})
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("bad question_type = %d", w.Code)
		}
	})

	t.Run("demo needs no auth", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/doubts/demo", "", gin.H{"question": "q", "subject": "math"})
		if w.Code != http.StatusOK {
			t.Fatalf("demo = %d %s", w.Code, w.Body.String())
		}
		demo, _ := s.store.FindDoubts(context.Background(), doubt.DemoUserID, 0, 0)
		if len(demo) != 1 {
			t.Fatalf("demo doubts = %d", len(demo))
		}
	})

	t.Run("requires auth", func(t *testing.T) {
		if w := s.do(t, http.MethodGet, "/api/doubts/", "", nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("unauthenticated list = %d", w.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		w := s.do(t, http.MethodDelete, "/api/doubts/"+created.ID, token, nil)
		if w.Code != http.StatusOK || w.Body.String() != `{"message":"Doubt deleted successfully","success":true}` {
			t.Fatalf("delete = %d %s", w.Code, w.Body.String())
		}
		if w := s.do(t, http.MethodDelete, "/api/doubts/"+created.ID, token, nil); w.Code != http.StatusNotFound {
			t.Fatalf("second delete = %d", w.Code)
		}
	})
}

func TestChatEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "asha@example.com")

	w := s.do(t, http.MethodPost, "/api/chat/send", token, gin.H{"message": "help with d1", "doubt_id": "d1"})
	if w.Code != http.StatusOK {
		t.Fatalf("send = %d %s", w.Code, w.Body.String())
	}
	var sent storage.ChatMessage
	decode(t, w, &sent)
	if sent.SenderType != storage.SenderUser || sent.DoubtID == nil || *sent.DoubtID != "d1" {
		t.Fatalf("sent = %+v", sent)
	}

	if w := s.do(t, http.MethodPost, "/api/chat/send", token, gin.H{}); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty message = %d", w.Code)
	}

	var msgs []storage.ChatMessage
	decode(t, s.do(t, http.MethodGet, "/api/chat/messages?doubt_id=d1", token, nil), &msgs)
	if len(msgs) != 2 || msgs[0].Message != "help with d1" || msgs[1].Message != chat.AutoReply {
		t.Fatalf("messages = %+v", msgs)
	}
}

func multipartBody(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "page.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestOCREndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "asha@example.com")
	payload := []byte("fake image bytes")
	encoded := base64.StdEncoding.EncodeToString(payload)

	t.Run("extract json", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/ocr/extract", token, gin.H{"image_data": encoded})
		var out ocr.ExtractionOutcome
		decode(t, w, &out)
		if w.Code != http.StatusOK || !out.Success || out.ExtractedText != "hello world" {
			t.Fatalf("extract = %d %+v", w.Code, out)
		}
		if !bytes.Equal(s.ocr.lastData, payload) {
			t.Fatalf("selector got %q", s.ocr.lastData)
		}
	})

	t.Run("extract multipart", func(t *testing.T) {
		body, contentType := multipartBody(t, []byte("multipart bytes"))
		req := httptest.NewRequest(http.MethodPost, "/api/ocr/extract", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		if w.Code != http.StatusOK || string(s.ocr.lastData) != "multipart bytes" {
			t.Fatalf("multipart extract = %d, data %q", w.Code, s.ocr.lastData)
		}
	})

	t.Run("validate and regions", func(t *testing.T) {
		var v ocr.ValidationResult
		decode(t, s.do(t, http.MethodPost, "/api/ocr/validate", token, gin.H{"image_data": encoded}), &v)
		if !v.Valid || v.Format != "png" {
			t.Fatalf("validate = %+v", v)
		}

		var r struct {
			Regions []ocr.TextRegion `json:"regions"`
		}
		decode(t, s.do(t, http.MethodPost, "/api/ocr/regions", token, gin.H{"image_data": encoded}), &r)
		if len(r.Regions) != 1 || r.Regions[0].BBox.Height != 4 {
			t.Fatalf("regions = %+v", r)
		}
	})

	tests := []struct {
		name   string
		body   any
		token  string
		status int
		detail string
	}{
		{"missing image", gin.H{}, token, http.StatusBadRequest, "No image provided"},
		{"bad base64", gin.H{"image_data": "@@@"}, token, http.StatusBadRequest, "Invalid image data"},
		{"too large", gin.H{"image_data": base64.StdEncoding.EncodeToString(make([]byte, 1500))}, token, http.StatusRequestEntityTooLarge, "Image too large"},
		{"unauthenticated", gin.H{"image_data": encoded}, "", http.StatusUnauthorized, "Authentication required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/ocr/extract", tt.token, tt.body)
			if w.Code != tt.status || detail(t, w) != tt.detail {
				t.Fatalf("got %d %s, want %d %s", w.Code, w.Body.String(), tt.status, tt.detail)
			}
		})
	}
}
