package backend_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backend "github.com/CuongBC195/e-contract-backend"
	"github.com/CuongBC195/e-contract-backend/pkg/archive"
	"github.com/CuongBC195/e-contract-backend/pkg/models"
	"github.com/CuongBC195/e-contract-backend/pkg/renderclient"
	"github.com/CuongBC195/e-contract-backend/pkg/storage/memory"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func newTestServer(opts ...backend.Option) *backend.Server {
	opts = append([]backend.Option{backend.WithRateLimit(10000, 10000)}, opts...)
	return backend.New(memory.New(), opts...)
}

func do(s *backend.Server, method string, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewBuffer(b)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func createDocument(t *testing.T, s *backend.Server, signingMode string) *models.Document {
	w := do(s, http.MethodPost, "/api/v1/documents", gin.H{
		"kind":        "contract",
		"title":       "Hợp đồng thuê nhà",
		"content":     "<p>Điều khoản</p>",
		"signingMode": signingMode,
		"metadata":    gin.H{"location": "Hà Nội"},
		"signers": []gin.H{
			{"id": "sender", "role": "Bên A", "name": "Nguyễn Văn A"},
			{"id": "receiver", "role": "Bên B", "name": "Trần Thị B"},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res struct {
		models.Document
	}
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.Id)
	return &res.Document
}

func signBody(signerId string, payload string) gin.H {
	return gin.H{
		"signerId": signerId,
		"signature": gin.H{
			"kind":    "draw",
			"payload": payload,
		},
	}
}

func TestCreateAndGetDocument(t *testing.T) {
	s := newTestServer()
	doc := createDocument(t, s, "public")

	w := do(s, http.MethodGet, "/api/v1/documents/"+doc.Id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		models.Document
		HashVerification struct {
			IsValid bool `json:"isValid"`
		} `json:"hashVerification"`
	}
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, models.StatusPending, res.Status)
	assert.True(t, res.HashVerification.IsValid)
	assert.Len(t, res.Signers, 2)
}

func TestGetUnknownDocument(t *testing.T) {
	s := newTestServer()
	w := do(s, http.MethodGet, "/api/v1/documents/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListDocuments(t *testing.T) {
	s := newTestServer()
	createDocument(t, s, "public")
	createDocument(t, s, "public")

	w := do(s, http.MethodGet, "/api/v1/documents", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Documents []models.Document `json:"documents"`
	}
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Documents, 2)
}

func TestSignFlow(t *testing.T) {
	s := newTestServer()
	doc := createDocument(t, s, "public")
	path := fmt.Sprintf("/api/v1/documents/%s/sign", doc.Id)

	w := do(s, http.MethodPost, path, signBody("sender", `[[{"x":1,"y":2,"t":3}]]`), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		Document      models.Document `json:"document"`
		AlreadySigned bool            `json:"alreadySigned"`
	}
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.AlreadySigned)
	assert.Equal(t, models.StatusPartiallySigned, res.Document.Status)

	// Retrying is a success, not an error.
	w = do(s, http.MethodPost, path, signBody("sender", `[[{"x":1,"y":2,"t":3}]]`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.AlreadySigned)

	w = do(s, http.MethodPost, path, signBody("receiver", `[[{"x":4,"y":5,"t":6}]]`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, models.StatusSigned, res.Document.Status)
	assert.NotNil(t, res.Document.SignedAt)
}

func TestSignErrorMapping(t *testing.T) {
	s := newTestServer()
	doc := createDocument(t, s, "public")
	path := fmt.Sprintf("/api/v1/documents/%s/sign", doc.Id)

	w := do(s, http.MethodPost, path, signBody("sender", "[[]]"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(s, http.MethodPost, path, signBody("stranger", `[[{"x":1,"y":2,"t":3}]]`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodPost, "/api/v1/documents/nope/sign", signBody("sender", `[[{"x":1,"y":2,"t":3}]]`), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodPost, path, gin.H{"signerId": "sender"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSigningModeRequiresBearerToken(t *testing.T) {
	s := newTestServer()
	doc := createDocument(t, s, "required_login")
	path := fmt.Sprintf("/api/v1/documents/%s/sign", doc.Id)

	w := do(s, http.MethodPost, path, signBody("sender", `[[{"x":1,"y":2,"t":3}]]`), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(s, http.MethodPost, path, signBody("sender", `[[{"x":1,"y":2,"t":3}]]`), map[string]string{
		"Authorization": "Bearer user-token",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestEditLockedDocument(t *testing.T) {
	s := newTestServer()
	doc := createDocument(t, s, "public")
	path := "/api/v1/documents/" + doc.Id

	w := do(s, http.MethodPut, path, gin.H{"title": "Hợp đồng sửa đổi"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	signPath := fmt.Sprintf("/api/v1/documents/%s/sign", doc.Id)
	w = do(s, http.MethodPost, signPath, signBody("sender", `[[{"x":1,"y":2,"t":3}]]`), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(s, http.MethodPut, path, gin.H{"title": "Quá muộn"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEditReportsVerification(t *testing.T) {
	s := newTestServer()
	doc := createDocument(t, s, "public")

	w := do(s, http.MethodPut, "/api/v1/documents/"+doc.Id, gin.H{"content": "<p>Mới</p>"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		HashVerification struct {
			IsValid bool `json:"isValid"`
		} `json:"hashVerification"`
	}
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.HashVerification.IsValid)
}

func TestExportPdf(t *testing.T) {
	s := newTestServer()
	doc := createDocument(t, s, "public")

	w := do(s, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/export", doc.Id), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-1.4")))

	w = do(s, http.MethodPost, "/api/v1/documents/nope/export", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func capturePng(t *testing.T, width int, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 240, G: 240, B: 240, A: 255})
		}
	}
	var buf bytes.Buffer
	require.Nil(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestExportThroughCaptureService(t *testing.T) {
	defer gock.Off()
	gock.New("http://render.lan:8080").
		Post("/api/v1/render").
		Reply(http.StatusOK).
		SetHeader("X-Capture-Height", "1200").
		Body(bytes.NewReader(capturePng(t, 800, 1200)))

	rc, err := renderclient.New("http://render.lan:8080")
	require.Nil(t, err)

	s := newTestServer(backend.WithRenderClient(rc))
	doc := createDocument(t, s, "public")

	w := do(s, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/export", doc.Id), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-1.4")))
	assert.True(t, gock.IsDone(), "the export must go through the capture service")
}

func TestExportFallsBackWhenCaptureServiceFails(t *testing.T) {
	defer gock.Off()
	gock.New("http://render.lan:8080").
		Post("/api/v1/render").
		Reply(http.StatusInternalServerError)

	rc, err := renderclient.New("http://render.lan:8080")
	require.Nil(t, err)

	s := newTestServer(backend.WithRenderClient(rc))
	doc := createDocument(t, s, "public")

	w := do(s, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/export", doc.Id), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-1.4")))
}

func TestArchivedExportEndpoints(t *testing.T) {
	a, err := archive.New(t.TempDir(), "")
	require.Nil(t, err)

	s := newTestServer(backend.WithArchive(a))
	doc := createDocument(t, s, "public")

	w := do(s, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/export", doc.Id), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	exported := w.Body.Bytes()

	w = do(s, http.MethodGet, fmt.Sprintf("/api/v1/documents/%s/exports", doc.Id), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Exports []string `json:"exports"`
	}
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Exports, 1)

	w = do(s, http.MethodGet, fmt.Sprintf("/api/v1/documents/%s/exports/%s", doc.Id, res.Exports[0]), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, exported, w.Body.Bytes())

	// A document with no exports lists empty instead of erroring.
	other := createDocument(t, s, "public")
	w = do(s, http.MethodGet, fmt.Sprintf("/api/v1/documents/%s/exports", other.Id), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Empty(t, res.Exports)

	w = do(s, http.MethodGet, fmt.Sprintf("/api/v1/documents/%s/exports/missing.pdf", doc.Id), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodGet, fmt.Sprintf("/api/v1/documents/%s/exports/..%%2fescape", doc.Id), nil, nil)
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestExportsWithoutArchive(t *testing.T) {
	s := newTestServer()
	doc := createDocument(t, s, "public")
	w := do(s, http.MethodGet, fmt.Sprintf("/api/v1/documents/%s/exports", doc.Id), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimiting(t *testing.T) {
	s := backend.New(memory.New(), backend.WithRateLimit(1, 2))

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		w := do(s, http.MethodGet, "/api/v1/documents", nil, nil)
		codes[w.Code]++
	}
	assert.Greater(t, codes[http.StatusTooManyRequests], 0)
	assert.Greater(t, codes[http.StatusOK], 0)
}
