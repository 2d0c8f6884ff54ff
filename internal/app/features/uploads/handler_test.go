package uploads_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/investwest/internal/app/features/errors"
	featureuploads "github.com/dalemusser/investwest/internal/app/features/uploads"
	"github.com/dalemusser/investwest/internal/app/system/uploads"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/investwest/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func multipartRequest(t *testing.T, u models.User, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	r := httptest.NewRequest("POST", "/uploads", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return testutil.WithUser(r, testutil.FromUser(u))
}

func TestUploadAndServe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	g := fx.CreateGroup(ctx, "Upload Angels")
	admin := fx.CreateAdmin(ctx, "admin@up.test", g.ID)
	investor := fx.CreateInvestor(ctx, "angel@up.test", g.ID)

	ls, err := uploads.NewLocal(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	h := featureuploads.NewHandler(db, ls, uierrors.NewErrorLogger(logger), logger)

	logo := map[string]string{"collection": "groups", "owner_id": g.ID.Hex(), "subfolder": uploads.Logos}

	rec := testutil.NewRecorder()
	h.HandleUpload(rec, multipartRequest(t, investor, logo, "logo.png", "png-bytes"))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.HandleUpload(rec, multipartRequest(t, admin, logo, "", ""))
	rec.AssertStatus(t, http.StatusBadRequest)

	bad := map[string]string{"collection": "groups", "owner_id": g.ID.Hex(), "subfolder": "Secrets"}
	rec = testutil.NewRecorder()
	h.HandleUpload(rec, multipartRequest(t, admin, bad, "logo.png", "png-bytes"))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	h.HandleUpload(rec, multipartRequest(t, admin, logo, "logo.png", "png-bytes"))
	rec.AssertStatus(t, http.StatusCreated)
	var info uploads.Info
	rec.DecodeJSON(t, &info)
	if !strings.HasPrefix(info.Path, "groups/"+g.ID.Hex()+"/Logos/") || !strings.HasSuffix(info.Path, ".png") {
		t.Fatalf("path = %q", info.Path)
	}

	got, err := h.Groups.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.LogoPath != info.Path {
		t.Errorf("logo path = %q, want %q", got.LogoPath, info.Path)
	}

	// Own profile picture is allowed for anyone.
	pic := map[string]string{"collection": "users", "owner_id": investor.ID.Hex(), "subfolder": uploads.ProfilePictures}
	rec = testutil.NewRecorder()
	h.HandleUpload(rec, multipartRequest(t, investor, pic, "me.jpg", "jpg-bytes"))
	rec.AssertStatus(t, http.StatusCreated)

	r := testutil.NewAuthenticatedRequest("GET", "/uploads/url", nil, testutil.FromUser(investor))
	r.URL.RawQuery = "path=" + info.Path
	rec = testutil.NewRecorder()
	h.ServeURL(rec, r)
	rec.AssertStatus(t, http.StatusOK)
	var link struct {
		URL string `json:"url"`
	}
	rec.DecodeJSON(t, &link)
	if link.URL != "/files/"+info.Path {
		t.Errorf("url = %q", link.URL)
	}

	router := chi.NewRouter()
	router.Get("/files/*", featureuploads.FileServer(ls))
	srec := httptest.NewRecorder()
	router.ServeHTTP(srec, httptest.NewRequest("GET", link.URL, nil))
	if srec.Code != http.StatusOK || srec.Body.String() != "png-bytes" {
		t.Errorf("served %d %q", srec.Code, srec.Body.String())
	}

	srec = httptest.NewRecorder()
	router.ServeHTTP(srec, httptest.NewRequest("GET", "/files/../../etc/passwd", nil))
	if srec.Code == http.StatusOK {
		t.Errorf("traversal served a file")
	}
}
