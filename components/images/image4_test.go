package images_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"chatey/auth"
	"chatey/components/images"
	"chatey/components/memdb"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/juju/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	//before
	fmt.Println("\nSTART UNIT TEST 'images'")
	gin.SetMode(gin.TestMode)

	m.Run()

	//after
	fmt.Println("END UNIT TEST 'images'")
}

func Test_Upload(t *testing.T) {
	asserts := assert.New(t)
	db := memdb.New()
	ctr := images.NewImageController(db, "http://localhost:8080/", 0)

	link, meta, err := ctr.Upload("g-ana", strings.NewReader("png-bytes"), "image/png")
	require.NoError(t, err)
	asserts.Equal("http://localhost:8080/images/g-ana?v="+meta.Revision, link)
	asserts.Equal(int64(9), meta.Size)
	asserts.Equal("image/png", meta.ContentType)

	stream, opened, err := ctr.Open("g-ana")
	require.NoError(t, err)
	defer stream.Close()
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	asserts.Equal("png-bytes", string(data))
	asserts.Equal(meta.Revision, opened.Revision)

	// a new upload replaces the image and changes the url
	next, _, err := ctr.Upload("g-ana", strings.NewReader("other"), "image/jpeg")
	require.NoError(t, err)
	asserts.NotEqual(link, next)
}

func Test_UploadRejects(t *testing.T) {
	asserts := assert.New(t)
	ctr := images.NewImageController(memdb.New(), "http://localhost:8080", 4)

	_, _, err := ctr.Upload("g-ana", strings.NewReader("12345"), "image/png")
	asserts.ErrorIs(err, images.ErrImageTooLarge)

	_, _, err = ctr.Upload("g-ana", strings.NewReader("1234"), "application/pdf")
	asserts.ErrorIs(err, images.ErrInvalidContentType)

	_, _, err = ctr.Upload("../etc", strings.NewReader("1234"), "image/png")
	asserts.ErrorIs(err, images.ErrInvalidOwner)

	_, _, err = ctr.Upload("g-ana", strings.NewReader(""), "image/png")
	asserts.Error(err)

	_, _, err = ctr.Upload("g-ana", strings.NewReader("1234"), "image/png")
	asserts.NoError(err)
}

func Test_UploadStoreFailure(t *testing.T) {
	db := memdb.New()
	db.FailOn("SaveImage", errors.New("disk full"))
	ctr := images.NewImageController(db, "http://localhost:8080", 0)

	_, _, err := ctr.Upload("g-ana", strings.NewReader("png"), "image/png")
	assert.EqualError(t, err, "disk full")
}

func Test_OpenAndDeleteMissing(t *testing.T) {
	asserts := assert.New(t)
	ctr := images.NewImageController(memdb.New(), "http://localhost:8080", 0)

	_, _, err := ctr.Open("g-ana")
	asserts.ErrorIs(err, images.ErrImageNotFound)
	asserts.ErrorIs(ctr.Delete("g-ana"), images.ErrImageNotFound)
	asserts.ErrorIs(ctr.Delete(""), images.ErrImageNotFound)
}

type profile struct {
	uid, link string
}

func (p *profile) UpdateProfileImage(uid, link string) error {
	p.uid, p.link = uid, link
	return nil
}

func upload(t *testing.T, r *gin.Engine, token, contentType string, data []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="me.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/images/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func Test_ImageRoute(t *testing.T) {
	asserts := assert.New(t)
	ctr := images.NewImageController(memdb.New(), "http://localhost:8080", 0)
	p := &profile{}

	route := images.NewImageRoute(logr.Discard(), ratelimit.NewBucket(time.Millisecond, 100), ctr, p)
	r := gin.New()
	r.Use(auth.Middleware())
	route.InitRouteTo(r)

	w := upload(t, r, "", "image/png", []byte("png-bytes"))
	asserts.Equal(http.StatusUnauthorized, w.Code)

	token, err := auth.CreateJWTToken("g-ana", "Ana", "", auth.AnHour)
	require.NoError(t, err)

	w = upload(t, r, token, "text/plain", []byte("hello"))
	asserts.Equal(http.StatusBadRequest, w.Code)

	w = upload(t, r, token, "image/png", []byte("png-bytes"))
	require.Equal(t, http.StatusOK, w.Code)
	asserts.Equal("g-ana", p.uid)
	asserts.True(strings.HasPrefix(p.link, "http://localhost:8080/images/g-ana?v="))

	path := strings.TrimPrefix(p.link, "http://localhost:8080")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	asserts.Equal(http.StatusOK, w.Code)
	asserts.Equal("png-bytes", w.Body.String())
	asserts.Equal("image/png", w.Header().Get("Content-Type"))
	asserts.Contains(w.Header().Get("Cache-Control"), "immutable")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/g-ana", nil))
	asserts.Equal(http.StatusOK, w.Code)
	asserts.Equal("no-cache", w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/g-ben", nil))
	asserts.Equal(http.StatusNotFound, w.Code)
}
