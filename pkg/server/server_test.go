package server

import (
	"bufio"
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"ar-tryon/pkg/catalog"
	"ar-tryon/pkg/media"
	"ar-tryon/pkg/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testFrame = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 0xff, 0xd9}

// oneFrameStream hands every subscriber a single frame and then ends.
type oneFrameStream struct {
	once     sync.Once
	released chan struct{}
}

func (s *oneFrameStream) Kind() media.Kind { return media.KindStream }

func (s *oneFrameStream) Release() { s.once.Do(func() { close(s.released) }) }

func (s *oneFrameStream) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)
	ch <- testFrame
	close(ch)
	return ch, func() {}
}

type fakeLive struct {
	last *oneFrameStream
}

func (f *fakeLive) Open(ctx context.Context) (media.Stream, error) {
	f.last = &oneFrameStream{released: make(chan struct{})}
	return f.last, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type testEnv struct {
	srv     *Server
	ctrl    *session.Controller
	adapter *media.Adapter
	live    *fakeLive
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	live := &fakeLive{}
	adapter := media.NewAdapter(live, 1<<20)
	ctrl := session.NewController(adapter)
	t.Cleanup(ctrl.Close)
	return &testEnv{
		srv:     New(catalog.Default(), ctrl, adapter),
		ctrl:    ctrl,
		adapter: adapter,
		live:    live,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %s", w.Body.String(), err)
	}
	if v != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, v); err != nil {
			t.Fatal(err)
		}
	}
	return env
}

type sessionResp struct {
	Mode     string `json:"mode"`
	Size     string `json:"size"`
	Color    string `json:"color"`
	Resource string `json:"resource"`
	Pending  string `json:"pending"`
	LiveURL  string `json:"liveUrl"`
	Item     *struct {
		ID       string            `json:"id"`
		Swatches map[string]string `json:"swatches"`
	} `json:"item"`
	Photo *struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"photo"`
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 5))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, data []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "me.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err = mw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes(), mw.FormDataContentType()
}

func TestCatalog(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/catalog", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var items []struct {
		ID       string            `json:"id"`
		Sizes    []string          `json:"sizes"`
		Swatches map[string]string `json:"swatches"`
	}
	decode(t, w, &items)
	if len(items) != 3 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].Swatches["Голубой"] != "#87CEEB" {
		t.Errorf("unexpected swatches %v", items[0].Swatches)
	}

	if w = e.do(t, http.MethodGet, "/api/catalog/404", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown item status %d", w.Code)
	}
}

func TestPhotoFlow(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/session/try-on/2", nil, "")
	var s sessionResp
	decode(t, w, &s)
	if w.Code != http.StatusOK || s.Mode != "choosing_method" || s.Size != "XS" || s.Item.ID != "2" {
		t.Fatalf("start: %d %+v", w.Code, s)
	}

	w = e.do(t, http.MethodPost, "/api/session/method/gallery", nil, "")
	decode(t, w, &s)
	if w.Code != http.StatusAccepted || s.Pending != "gallery" {
		t.Fatalf("choose: %d %+v", w.Code, s)
	}
	waitFor(t, "gallery picker", e.adapter.Gallery.Pending)

	photo := pngBytes(t)
	body, ct := multipartBody(t, photo)
	if w = e.do(t, http.MethodPost, "/api/media/gallery", body, ct); w.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	waitFor(t, "photo review", func() bool { return e.ctrl.Mode() == session.PhotoReview })

	w = e.do(t, http.MethodGet, "/api/session", nil, "")
	s = sessionResp{}
	decode(t, w, &s)
	if s.Resource != "image" || s.Photo == nil || !strings.HasPrefix(s.Photo.URL, photoPath) {
		t.Fatalf("session: %+v", s)
	}

	w = e.do(t, http.MethodGet, "/api/session/photo", nil, "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("photo: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if !bytes.Equal(w.Body.Bytes(), photo) {
		t.Fatal("photo bytes differ")
	}

	w = e.do(t, http.MethodDelete, "/api/session", nil, "")
	s = sessionResp{}
	decode(t, w, &s)
	if s.Mode != "idle" || s.Item != nil || s.Photo != nil {
		t.Fatalf("cancel: %+v", s)
	}
	if w = e.do(t, http.MethodGet, "/api/session/photo", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("photo after cancel: %d", w.Code)
	}
}

func TestDismissPicker(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/api/session/try-on/1", nil, "")

	if w := e.do(t, http.MethodDelete, "/api/media/capture", nil, ""); w.Code != http.StatusConflict {
		t.Fatalf("dismiss without request: %d", w.Code)
	}

	e.do(t, http.MethodPost, "/api/session/method/capture", nil, "")
	waitFor(t, "capture picker", e.adapter.Capture.Pending)
	if w := e.do(t, http.MethodDelete, "/api/media/capture", nil, ""); w.Code != http.StatusOK {
		t.Fatalf("dismiss: %d", w.Code)
	}
	waitFor(t, "abort", func() bool { return e.ctrl.Snapshot().Pending == session.MethodNone })
	if m := e.ctrl.Mode(); m != session.ChoosingMethod {
		t.Fatalf("mode after dismiss %s", m)
	}
}

func TestUploadRejected(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/api/session/try-on/1", nil, "")
	e.do(t, http.MethodPost, "/api/session/method/gallery", nil, "")
	waitFor(t, "gallery picker", e.adapter.Gallery.Pending)

	body, ct := multipartBody(t, []byte("plain text is not a photo"))
	if w := e.do(t, http.MethodPost, "/api/media/gallery", body, ct); w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status %d", w.Code)
	}
	waitFor(t, "notice", func() bool { return e.ctrl.Snapshot().Notice != "" })
	if m := e.ctrl.Mode(); m != session.ChoosingMethod {
		t.Fatalf("mode %s", m)
	}

	if w := e.do(t, http.MethodPost, "/api/media/scanner", body, ct); w.Code != http.StatusNotFound {
		t.Fatalf("unknown source status %d", w.Code)
	}
}

func TestLiveFlow(t *testing.T) {
	e := newTestEnv(t)
	if w := e.do(t, http.MethodGet, "/api/session/live", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("live while idle: %d", w.Code)
	}

	e.do(t, http.MethodPost, "/api/session/try-on/3", nil, "")
	e.do(t, http.MethodPost, "/api/session/method/live", nil, "")
	waitFor(t, "live camera", func() bool { return e.ctrl.Mode() == session.LiveCamera })

	w := e.do(t, http.MethodGet, "/api/session", nil, "")
	var s sessionResp
	decode(t, w, &s)
	if s.Resource != "stream" || s.LiveURL != livePath {
		t.Fatalf("session: %+v", s)
	}

	w = e.do(t, http.MethodGet, livePath, nil, "")
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "multipart/x-mixed-replace") {
		t.Fatalf("content type %q", w.Header().Get("Content-Type"))
	}
	if !bytes.Contains(w.Body.Bytes(), testFrame) {
		t.Fatal("frame missing from the feed")
	}

	e.do(t, http.MethodDelete, "/api/session", nil, "")
	select {
	case <-e.live.last.released:
	case <-time.After(time.Second):
		t.Fatal("stream was not released on cancel")
	}
}

func TestSelectionErrors(t *testing.T) {
	e := newTestEnv(t)

	if w := e.do(t, http.MethodPut, "/api/session/size", []byte(`{"value":"M"}`), "application/json"); w.Code != http.StatusConflict {
		t.Fatalf("size while idle: %d", w.Code)
	}

	e.do(t, http.MethodPost, "/api/session/try-on/3", nil, "")
	if w := e.do(t, http.MethodPut, "/api/session/size", []byte(`{"value":"XL"}`), "application/json"); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid size: %d", w.Code)
	}
	if w := e.do(t, http.MethodPut, "/api/session/size", []byte(`{}`), "application/json"); w.Code != http.StatusBadRequest {
		t.Fatalf("missing value: %d", w.Code)
	}

	w := e.do(t, http.MethodPut, "/api/session/color", []byte(`{"value":"Бежевый"}`), "application/json")
	var s sessionResp
	decode(t, w, &s)
	if w.Code != http.StatusOK || s.Color != "Бежевый" || s.Size != "XS" {
		t.Fatalf("color: %d %+v", w.Code, s)
	}
}

func TestIntentErrors(t *testing.T) {
	e := newTestEnv(t)

	if w := e.do(t, http.MethodPost, "/api/session/method/live", nil, ""); w.Code != http.StatusConflict {
		t.Fatalf("choose while idle: %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/session/method/teleport", nil, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown method: %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/session/retake", nil, ""); w.Code != http.StatusConflict {
		t.Fatalf("retake while idle: %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/session/try-on/9", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown item: %d", w.Code)
	}
	w := e.do(t, http.MethodDelete, "/api/session", nil, "")
	if env := decode(t, w, nil); w.Code != http.StatusOK || env.Status != "success" {
		t.Fatalf("cancel while idle: %d %+v", w.Code, env)
	}
}

func TestSessionEvents(t *testing.T) {
	e := newTestEnv(t)
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/session/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if strings.HasPrefix(sc.Text(), "data:") {
				lines <- sc.Text()
			}
		}
		close(lines)
	}()

	next := func() string {
		select {
		case l, ok := <-lines:
			if !ok {
				t.Fatal("event stream ended")
			}
			return l
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for an event")
		}
		return ""
	}

	if l := next(); !strings.Contains(l, `"mode":"idle"`) {
		t.Fatalf("first event %s", l)
	}
	if err = e.ctrl.StartTryOn(ptr(catalog.Default().Items()[0])); err != nil {
		t.Fatal(err)
	}
	if l := next(); !strings.Contains(l, `"mode":"choosing_method"`) {
		t.Fatalf("second event %s", l)
	}
	cancel()
	for range lines {
	}
}

func ptr[T any](v T) *T {
	return &v
}
