package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sanjeevkumarraob/drive-search-service/internal/artifact"
	"github.com/sanjeevkumarraob/drive-search-service/internal/auth"
	"github.com/sanjeevkumarraob/drive-search-service/internal/document"
	"github.com/sanjeevkumarraob/drive-search-service/internal/document/extractor"
	"github.com/sanjeevkumarraob/drive-search-service/internal/drive"
	"github.com/sanjeevkumarraob/drive-search-service/internal/pipeline"
	"github.com/sanjeevkumarraob/drive-search-service/internal/search"
	"github.com/sanjeevkumarraob/drive-search-service/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router    *gin.Engine
	handler   *Handler
	artifacts *artifact.Store
	cookies   map[string]*http.Cookie
}

// googleStub serves the token and userinfo endpoints
func googleStub(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			r.ParseForm()
			switch r.Form.Get("grant_type") {
			case "authorization_code":
				w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600}`))
			case "refresh_token":
				w.Write([]byte(`{"access_token":"access-2","token_type":"Bearer","expires_in":3600}`))
			}
		case "/userinfo":
			w.Write([]byte(`{"id":"7","email":"ana@example.com","name":"Ana"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestServer(t *testing.T, driveHandler http.HandlerFunc) *testServer {
	t.Helper()
	logger := log.New(io.Discard, "", 0)

	driveServer := httptest.NewServer(driveHandler)
	t.Cleanup(driveServer.Close)
	google := googleStub(t)

	store, err := artifact.NewStore(artifact.Config{Dir: t.TempDir(), SweepInterval: time.Hour}, logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	client := drive.NewClient(drive.Config{BaseURL: driveServer.URL}, logger)
	processor := document.NewProcessor(logger, nil, nil, document.DefaultOptions())

	h := NewHandler(Dependencies{
		GoogleAuth: auth.NewGoogleAuth(auth.GoogleConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost/auth/callback",
			TokenURL:     google.URL + "/token",
			UserInfoURL:  google.URL + "/userinfo",
		}, logger),
		SessionManager: session.NewSessionManager(logger, session.NewCookieStore("test-secret-with-enough-length", false), 0),
		Tickets:        auth.NewTicketManager("ticket-secret", time.Minute),
		Drive:          client,
		Search:         search.NewOrchestrator(client, logger),
		Exporter:       pipeline.NewExporter(client, processor, store, logger),
		Processor:      processor,
		Artifacts:      store,
		MaxUploadSize:  1 << 20,
	}, logger)

	return &testServer{
		router:    NewRouter(h, []string{"http://localhost:3000"}, logger),
		handler:   h,
		artifacts: store,
		cookies:   map[string]*http.Cookie{},
	}
}

// do sends a request, carrying cookies between calls like a browser
func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range s.cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	for _, cookie := range w.Result().Cookies() {
		s.cookies[cookie.Name] = cookie
	}
	return w
}

func (s *testServer) doJSON(method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return s.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %q", w.Body.String())
	}
	return body
}

func notFoundDrive(w http.ResponseWriter, r *http.Request) {
	http.Error(w, `{"error":"notFound"}`, http.StatusNotFound)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, notFoundDrive)
	w := s.doJSON(http.MethodGet, "/", nil, "")
	if w.Code != http.StatusOK || decode(t, w)["status"] != "healthy" {
		t.Errorf("GET / = %d %s", w.Code, w.Body)
	}
}

func TestUnauthenticatedRequest(t *testing.T) {
	s := newTestServer(t, notFoundDrive)
	w := s.doJSON(http.MethodPost, "/api/search", search.Filter{Query: "budget"}, "")
	if w.Code != http.StatusUnauthorized || decode(t, w)["reauthenticate"] != true {
		t.Errorf("POST /api/search = %d %s", w.Code, w.Body)
	}
}

func TestLoginFlowAndTokenRefresh(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":"folder-1","name":"Contracts","mimeType":"application/vnd.google-apps.folder","parents":["root"]}`))
	})

	w := s.doJSON(http.MethodGet, "/auth/login", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /auth/login = %d %s", w.Code, w.Body)
	}
	consent, err := url.Parse(decode(t, w)["url"].(string))
	if err != nil {
		t.Fatal(err)
	}
	state := consent.Query().Get("state")

	w = s.doJSON(http.MethodGet, "/auth/callback?code=c1&state=wrong", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("callback with forged state = %d", w.Code)
	}

	// the forged attempt consumed the state
	w = s.doJSON(http.MethodGet, "/auth/login", nil, "")
	consent, _ = url.Parse(decode(t, w)["url"].(string))
	state = consent.Query().Get("state")

	w = s.doJSON(http.MethodGet, "/auth/callback?code=c1&state="+url.QueryEscape(state), nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /auth/callback = %d %s", w.Code, w.Body)
	}

	w = s.doJSON(http.MethodGet, "/api/me", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ana@example.com") {
		t.Errorf("GET /api/me = %d %s", w.Code, w.Body)
	}

	// access-1 is rejected by the drive, so this call refreshes
	w = s.doJSON(http.MethodGet, "/api/folders/folder-1", nil, "")
	if w.Code != http.StatusOK || decode(t, w)["name"] != "Contracts" {
		t.Fatalf("GET /api/folders/folder-1 = %d %s", w.Code, w.Body)
	}

	w = s.doJSON(http.MethodGet, "/api/folders/folder-1/parent", nil, "")
	if w.Code != http.StatusOK || decode(t, w)["parentId"] != "root" {
		t.Errorf("GET parent = %d %s", w.Code, w.Body)
	}

	w = s.doJSON(http.MethodPost, "/auth/logout", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("POST /auth/logout = %d", w.Code)
	}
	w = s.doJSON(http.MethodGet, "/api/me", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/me after logout = %d", w.Code)
	}
}

func TestExpiredDriveTokenAsksForReauthentication(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	w := s.doJSON(http.MethodGet, "/api/folders/root/folders", nil, "expired")
	if w.Code != http.StatusUnauthorized || decode(t, w)["reauthenticate"] != true {
		t.Errorf("GET folders = %d %s", w.Code, w.Body)
	}
}

func TestSearchEndpoint(t *testing.T) {
	var lastQuery string
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		lastQuery = r.URL.Query().Get("q")
		w.Write([]byte(`{"files":[{"id":"f1","name":"budget.pdf","mimeType":"application/pdf","size":"10"}]}`))
	})

	w := s.doJSON(http.MethodPost, "/api/search", search.Filter{Query: "ab"}, "tok")
	if w.Code != http.StatusBadRequest || decode(t, w)["error"] != search.MsgQueryTooShort {
		t.Errorf("short query = %d %s", w.Code, w.Body)
	}

	w = s.doJSON(http.MethodPost, "/api/search", search.Filter{Query: "budget", FolderID: "folder-1"}, "tok")
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d %s", w.Code, w.Body)
	}
	body := decode(t, w)
	if body["count"] != float64(1) {
		t.Errorf("search body = %v", body)
	}
	if !strings.Contains(lastQuery, "'folder-1' in parents") || !strings.Contains(lastQuery, "fullText contains 'budget'") {
		t.Errorf("drive query = %q", lastQuery)
	}
}

func TestFolderListings(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"files":[
			{"id":"sub","name":"Sub","mimeType":"application/vnd.google-apps.folder","createdTime":"` + now + `"},
			{"id":"a","name":"a.pdf","mimeType":"application/pdf","size":"2048","createdTime":"` + now + `"}
		]}`))
	})

	w := s.doJSON(http.MethodGet, "/api/folders/root/stats", nil, "tok")
	if w.Code != http.StatusOK {
		t.Fatalf("stats = %d %s", w.Code, w.Body)
	}
	var stats drive.FolderStats
	json.Unmarshal(w.Body.Bytes(), &stats)
	if stats != (drive.FolderStats{Folders: 1, Files: 1, TotalSize: 2048, NewFolders: 1, NewFiles: 1}) {
		t.Errorf("stats = %+v", stats)
	}

	w = s.doJSON(http.MethodGet, "/api/folders/root/files", nil, "tok")
	if w.Code != http.StatusOK || decode(t, w)["count"] != float64(2) {
		t.Errorf("files = %d %s", w.Code, w.Body)
	}

	w = s.doJSON(http.MethodGet, "/api/file-types", nil, "tok")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Word Document (.docx)") {
		t.Errorf("file types = %d %s", w.Code, w.Body)
	}
}

func TestExtractEndpoint(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/files/note" && r.URL.Query().Get("alt") == "media":
			w.Write([]byte("meeting notes for the week"))
		case r.URL.Path == "/files/note":
			w.Write([]byte(`{"id":"note","name":"note.txt","mimeType":"text/plain"}`))
		default:
			notFoundDrive(w, r)
		}
	})

	w := s.doJSON(http.MethodPost, "/api/extract", fileBatchRequest{}, "tok")
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty batch = %d %s", w.Code, w.Body)
	}

	w = s.doJSON(http.MethodPost, "/api/extract", fileBatchRequest{FileIDs: []string{"note", "gone"}}, "tok")
	if w.Code != http.StatusOK {
		t.Fatalf("extract = %d %s", w.Code, w.Body)
	}
	var batch pipeline.Batch
	if err := json.Unmarshal(w.Body.Bytes(), &batch); err != nil {
		t.Fatal(err)
	}
	if len(batch.Results) != 2 || batch.Results[0].Content != "meeting notes for the week" || !batch.Results[1].Fallback {
		t.Errorf("batch = %+v", batch)
	}
}

func TestExtractTextJSON(t *testing.T) {
	s := newTestServer(t, notFoundDrive)

	w := s.doJSON(http.MethodPost, "/api/extract-text", extractTextRequest{
		FileData: base64.StdEncoding.EncodeToString([]byte("Dear team\nplease read this")),
		MimeType: "text/plain",
		FileName: "memo.txt",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("extract-text = %d %s", w.Code, w.Body)
	}
	if got := decode(t, w)["extractedText"]; got != "Dear team\nplease read this" {
		t.Errorf("extractedText = %q", got)
	}

	w = s.doJSON(http.MethodPost, "/api/extract-text", extractTextRequest{
		FileData: base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'}),
		MimeType: "image/png",
	}, "")
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Unsupported file type") {
		t.Errorf("image upload = %d %s", w.Code, w.Body)
	}

	w = s.doJSON(http.MethodPost, "/api/extract-text", extractTextRequest{MimeType: "text/plain"}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing data = %d %s", w.Code, w.Body)
	}

	w = s.doJSON(http.MethodPost, "/api/extract-text", extractTextRequest{
		FileData: base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 broken")),
		MimeType: "application/pdf",
	}, "")
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "Error extracting text") {
		t.Errorf("broken pdf = %d %s", w.Code, w.Body)
	}
}

func TestExtractTextMultipart(t *testing.T) {
	s := newTestServer(t, notFoundDrive)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("uploaded plain text body"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/extract-text", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := s.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("multipart upload = %d %s", w.Code, w.Body)
	}
	resp := decode(t, w)
	if resp["extractedText"] != "uploaded plain text body" || resp["fileName"] != "notes.txt" {
		t.Errorf("response = %v", resp)
	}
}

func TestCombineFilesAndDownload(t *testing.T) {
	s := newTestServer(t, notFoundDrive)

	w := s.doJSON(http.MethodPost, "/api/combine-files", combineRequest{}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty combine = %d %s", w.Code, w.Body)
	}

	combineFiles := func(content string) *httptest.ResponseRecorder {
		w := s.doJSON(http.MethodPost, "/api/combine-files", combineRequest{
			Files: []document.Result{
				{FileName: "A.txt", Content: content},
				{FileName: "B.pdf", Content: "world"},
			},
			Query: "test",
		}, "")
		if w.Code != http.StatusOK {
			t.Fatalf("combine = %d %s", w.Code, w.Body)
		}
		return w
	}

	w = combineFiles("hello")
	if w.Header().Get("Content-Type") != MimeDocx || !strings.Contains(w.Header().Get("Content-Disposition"), "test_") {
		t.Errorf("headers = %v", w.Header())
	}

	text, err := extractor.NewWordExtractor().ExtractXML(context.Background(), w.Body.Bytes())
	if err != nil {
		t.Fatalf("combined document unreadable: %v", err)
	}
	if !strings.Contains(text, "Search Query: test") || !strings.Contains(text, "Total Files: 2") ||
		strings.Index(text, "A.txt") > strings.Index(text, "B.pdf") {
		t.Errorf("combined text = %q", text)
	}

	name := w.Header().Get("X-File-Name")
	id := w.Header().Get("X-Artifact-Id")
	ticket := w.Header().Get("X-Download-Ticket")
	if name == "" || id == "" || ticket == "" {
		t.Fatalf("name = %q, id = %q, ticket = %q", name, id, ticket)
	}

	download := func(fileName, ticket string) *httptest.ResponseRecorder {
		return s.doJSON(http.MethodGet, "/api/download-file?fileName="+url.QueryEscape(fileName)+"&ticket="+url.QueryEscape(ticket), nil, "")
	}

	got := download(id, ticket)
	if got.Code != http.StatusOK || !bytes.Equal(got.Body.Bytes(), w.Body.Bytes()) {
		t.Errorf("download = %d, %d bytes", got.Code, got.Body.Len())
	}
	if !strings.Contains(got.Header().Get("Content-Disposition"), name) {
		t.Errorf("download Content-Disposition = %q, want %q", got.Header().Get("Content-Disposition"), name)
	}
	if w := download(id, "forged"); w.Code != http.StatusUnauthorized {
		t.Errorf("forged ticket = %d", w.Code)
	}

	// same query within the same second
	second := combineFiles("other user")
	secondID := second.Header().Get("X-Artifact-Id")
	if secondID == id {
		t.Fatalf("two exports share artifact id %q", id)
	}
	if w := download(id, ticket); !bytes.Equal(w.Body.Bytes(), got.Body.Bytes()) {
		t.Error("first download changed after a second export")
	}
	if w := download(secondID, second.Header().Get("X-Download-Ticket")); !bytes.Equal(w.Body.Bytes(), second.Body.Bytes()) {
		t.Error("second download does not match its export")
	}
	if w := download(secondID, ticket); w.Code != http.StatusUnauthorized {
		t.Errorf("ticket for another artifact = %d", w.Code)
	}

	other, err := s.handler.tickets.Issue("missing.docx", "missing.docx")
	if err != nil {
		t.Fatal(err)
	}
	if w := download("missing.docx", other); w.Code != http.StatusNotFound {
		t.Errorf("missing artifact = %d", w.Code)
	}
}
