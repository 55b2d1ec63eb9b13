// Package renderclient talks to the headless capture service that turns
// rendered document HTML into a full-page raster image. The capture is the
// input of the image-based PDF pagination path.
package renderclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
)

type Client struct {
	http     *http.Client
	endpoint *url.URL
	mutex    sync.Mutex
}

var logger = logrus.StandardLogger().WithField("package", "renderclient")

// CaptureRequest asks the service to render markup at a fixed viewport
// width, so the resulting image always represents exactly one page-content
// width.
type CaptureRequest struct {
	Html  string `json:"html"`
	Width int    `json:"width"`
}

// Capture is the rendered result. Width and Height are the image's pixel
// dimensions; Width always equals the requested viewport width.
type Capture struct {
	Image  []byte
	Width  int
	Height int
}

// Render submits markup and returns the captured PNG.
func (c *Client) Render(html string, viewportWidth int) (*Capture, error) {
	// The capture service renders one page at a time; serialize access.
	c.mutex.Lock()
	defer c.mutex.Unlock()

	renderUrl, err := c.endpoint.Parse("/api/v1/render")
	if err != nil {
		return nil, fmt.Errorf("unable to parse URL: %v", err)
	}

	body := bytes.NewBuffer(nil)
	enc := json.NewEncoder(body)
	if err := enc.Encode(CaptureRequest{Html: html, Width: viewportWidth}); err != nil {
		return nil, fmt.Errorf("unable to encode request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, renderUrl.String(), body)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to perform HTTP request: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}

	img, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read capture: %v", err)
	}
	logger.Debugf("captured %d bytes at width %d", len(img), viewportWidth)

	var height int
	if h := res.Header.Get("X-Capture-Height"); h != "" {
		fmt.Sscanf(h, "%d", &height)
	}

	return &Capture{
		Image:  img,
		Width:  viewportWidth,
		Height: height,
	}, nil
}

// Healthz checks if the capture service is healthy and returns true if it is.
func (c *Client) Healthz() (bool, error) {
	healthEndpoint, err := c.endpoint.Parse("/healthz")
	if err != nil {
		return false, err
	}
	res, err := c.http.Get(healthEndpoint.String())
	if err != nil {
		return false, err
	}

	if res.StatusCode == http.StatusOK {
		return true, nil
	}
	return false, nil
}

func New(endpoint string) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme %s is not supported", u.Scheme)
	}

	return &Client{
		endpoint: u,
		http:     &http.Client{},
	}, nil
}

func (c *Client) SetHttpTransport(transport http.RoundTripper) {
	c.http.Transport = transport
}
