package directory_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/directory"
	"github.com/JaimeStill/docket/internal/slots"
	"github.com/JaimeStill/docket/pkg/auth"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type mockSystem struct {
	signatures map[uuid.UUID]directory.Signature
}

func (m *mockSystem) Handler(maxUploadSize int64) *directory.Handler {
	return directory.NewHandler(m, slog.New(slog.NewTextHandler(io.Discard, nil)), maxUploadSize)
}

func (m *mockSystem) FindUser(context.Context, uuid.UUID) (*directory.User, error) {
	return nil, directory.ErrUserNotFound
}

func (m *mockSystem) DepartmentHead(context.Context, uuid.UUID) (uuid.UUID, bool, error) {
	return uuid.Nil, false, nil
}

func (m *mockSystem) SlotBinding(context.Context, slots.Key) (*directory.Binding, bool, error) {
	return nil, false, nil
}

func (m *mockSystem) AnyUserInRole(context.Context, string) (uuid.UUID, bool, error) {
	return uuid.Nil, false, nil
}

func (m *mockSystem) ActiveIdentity(context.Context, uuid.UUID) (*directory.Identity, error) {
	return nil, directory.ErrNoIdentity
}

func (m *mockSystem) Signature(_ context.Context, user uuid.UUID) (*directory.Signature, error) {
	sig, ok := m.signatures[user]
	if !ok {
		return nil, directory.ErrNoSignature
	}
	return &sig, nil
}

func (m *mockSystem) PutSignature(_ context.Context, user uuid.UUID, contentType string, data []byte) (*directory.Signature, error) {
	sig := directory.Signature{UserID: user, ContentType: contentType, Data: data, UploadedAt: time.Now()}
	m.signatures[user] = sig
	return &sig, nil
}

func setupMux(h *directory.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
	}
	return mux
}

func multipartBody(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "signature.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestSignatureRoundTrip(t *testing.T) {
	user := uuid.New()
	sys := &mockSystem{signatures: map[uuid.UUID]directory.Signature{}}
	mux := setupMux(sys.Handler(1 << 20))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/directory/signature", nil)
	mux.ServeHTTP(rec, req.WithContext(auth.WithUser(req.Context(), user)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("before upload status = %d, want 404", rec.Code)
	}

	body, ct := multipartBody(t, pngHeader)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("PUT", "/directory/signature", body)
	req.Header.Set("Content-Type", ct)
	mux.ServeHTTP(rec, req.WithContext(auth.WithUser(req.Context(), user)))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, want 200: %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/directory/signature", nil)
	mux.ServeHTTP(rec, req.WithContext(auth.WithUser(req.Context(), user)))
	if rec.Code != http.StatusOK {
		t.Fatalf("fetch status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("content-type = %s, want image/png", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), pngHeader) {
		t.Error("fetched image differs from upload")
	}
}

func TestPutSignatureRejectsNonImage(t *testing.T) {
	sys := &mockSystem{signatures: map[uuid.UUID]directory.Signature{}}
	mux := setupMux(sys.Handler(1 << 20))

	body, ct := multipartBody(t, []byte("%PDF-1.7 not an image"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/directory/signature", body)
	req.Header.Set("Content-Type", ct)
	mux.ServeHTTP(rec, req.WithContext(auth.WithUser(req.Context(), uuid.New())))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSignatureRequiresUser(t *testing.T) {
	sys := &mockSystem{signatures: map[uuid.UUID]directory.Signature{}}
	rec := httptest.NewRecorder()
	setupMux(sys.Handler(1<<20)).ServeHTTP(rec, httptest.NewRequest("GET", "/directory/signature", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
