package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ent0n29/scheherazade/internal/config"
	"github.com/ent0n29/scheherazade/internal/engine"
	"github.com/ent0n29/scheherazade/internal/extract"
	"github.com/ent0n29/scheherazade/internal/project"
	"github.com/ent0n29/scheherazade/internal/synth"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	root := t.TempDir()
	store, err := project.NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	mock := synth.NewMock()
	eng := engine.New(store, mock, mock, nil, engine.Config{ProjectsDir: root})
	srv := New(config.Config{}, eng, extract.NewRegistry(), nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/projects", map[string]any{
		"name":  "My Book",
		"text":  "Hello paragraph one.\n\nHello paragraph two.",
		"voice": "af_heart",
		"speed": 1.0,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var created project.Project
	decodeBody(t, resp, &created)
	if created.ID == "" || created.TotalChunks == 0 {
		t.Fatalf("created = %+v", created)
	}

	// Final audio before any processing: 409, not a generic failure.
	resp, err := http.Get(fmt.Sprintf("%s/api/projects/%s/audio", ts.URL, created.ID))
	if err != nil {
		t.Fatalf("GET final: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("final-before-ready status = %d, want 409", resp.StatusCode)
	}

	// On-demand chunk audio generates and serves a WAV.
	resp, err = http.Get(fmt.Sprintf("%s/api/projects/%s/chunks/0/audio", ts.URL, created.ID))
	if err != nil {
		t.Fatalf("GET chunk audio: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chunk audio status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Fatalf("chunk audio content-type = %q", ct)
	}

	// Drive the rest to completion via process_next.
	for i := 0; i < created.TotalChunks+1; i++ {
		resp = postJSON(t, ts.URL+"/api/projects/"+created.ID+"/process_next", map[string]any{})
		var step struct {
			Done bool `json:"done"`
		}
		decodeBody(t, resp, &step)
		if step.Done {
			break
		}
	}

	resp, err = http.Get(fmt.Sprintf("%s/api/projects/%s/audio", ts.URL, created.ID))
	if err != nil {
		t.Fatalf("GET final: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("final status = %d, want 200", resp.StatusCode)
	}

	var got project.Project
	resp, err = http.Get(ts.URL + "/api/projects/" + created.ID)
	if err != nil {
		t.Fatalf("GET project: %v", err)
	}
	decodeBody(t, resp, &got)
	if !got.IsFinished || !got.IsOptimized {
		t.Fatalf("project after completion = %+v", got)
	}
}

func TestGetMissingProject(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/projects/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var e struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Code != "project_not_found" {
		t.Fatalf("code = %q, want project_not_found", e.Code)
	}
}

func TestCreateProjectRejectsEmpty(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/api/projects", map[string]any{"name": "empty"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListVoicesEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/voices")
	if err != nil {
		t.Fatalf("GET voices: %v", err)
	}
	var voices []synth.VoiceInfo
	decodeBody(t, resp, &voices)
	if len(voices) == 0 {
		t.Fatalf("empty voice catalog")
	}
}

func TestExtractEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "doc.txt")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fmt.Fprint(fw, "  extracted body text  ")
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/extract", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST extract: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("extract status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Text string `json:"text"`
	}
	decodeBody(t, resp, &body)
	if body.Text != "extracted body text" {
		t.Fatalf("text = %q", body.Text)
	}

	// Unsupported extension gets a typed rejection.
	buf.Reset()
	mw = multipart.NewWriter(&buf)
	fw, _ = mw.CreateFormFile("file", "doc.exe")
	fmt.Fprint(fw, "binary")
	mw.Close()
	resp, err = http.Post(ts.URL+"/api/extract", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST extract: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("unsupported status = %d, want 415", resp.StatusCode)
	}
}
