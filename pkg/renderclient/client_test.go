package renderclient_test

import (
	"net/http"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuongBC195/e-contract-backend/pkg/renderclient"
)

func TestNewRejectsBadEndpoints(t *testing.T) {
	_, err := renderclient.New("ftp://render.lan")
	assert.NotNil(t, err)

	_, err = renderclient.New("http://render.lan:8080")
	assert.Nil(t, err)
}

func TestHealthz(t *testing.T) {
	defer gock.Off()
	gock.New("http://render.lan:8080").
		Get("/healthz").
		Reply(http.StatusOK).
		BodyString(`{}`)

	c, err := renderclient.New("http://render.lan:8080")
	require.Nil(t, err)

	healthy, err := c.Healthz()
	assert.Nil(t, err)
	assert.True(t, healthy)
}

func TestRender(t *testing.T) {
	defer gock.Off()
	gock.New("http://render.lan:8080").
		Post("/api/v1/render").
		JSON(renderclient.CaptureRequest{Html: "<p>Hợp đồng</p>", Width: 800}).
		Reply(http.StatusOK).
		SetHeader("X-Capture-Height", "2400").
		BodyString("fake png bytes")

	c, err := renderclient.New("http://render.lan:8080")
	require.Nil(t, err)

	capture, err := c.Render("<p>Hợp đồng</p>", 800)
	require.Nil(t, err)
	assert.Equal(t, []byte("fake png bytes"), capture.Image)
	assert.Equal(t, 800, capture.Width)
	assert.Equal(t, 2400, capture.Height)
}

func TestRenderErrorStatus(t *testing.T) {
	defer gock.Off()
	gock.New("http://render.lan:8080").
		Post("/api/v1/render").
		Reply(http.StatusInternalServerError)

	c, err := renderclient.New("http://render.lan:8080")
	require.Nil(t, err)

	_, err = c.Render("<p></p>", 800)
	assert.NotNil(t, err)
}
