package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client issues requests against one upstream service and translates
// failures into StatusError and TransportError values.
type Client struct {
	service string
	http    *http.Client
}

// NewClient creates a Client for the named service using hc for transport.
func NewClient(service string, hc *http.Client) *Client {
	return &Client{service: service, http: hc}
}

// Service returns the upstream service name.
func (c *Client) Service() string {
	return c.service
}

// Do sends req and returns the response when the status is below 400.
// The caller must close the response body. Statuses of 400 and above are
// drained into a StatusError and the body is closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Service: c.service, Err: err}
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &TransportError{
				Service: c.service,
				Err:     fmt.Errorf("read error response: %w", err),
			}
		}
		return nil, &StatusError{
			Service: c.service,
			Status:  resp.StatusCode,
			Message: string(body),
		}
	}

	return resp, nil
}

// DoJSON sends req and decodes a successful JSON response into out.
// A nil out discards the body.
func (c *Client) DoJSON(req *http.Request, out any) (*http.Response, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return resp, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, &TransportError{
			Service: c.service,
			Err:     fmt.Errorf("decode response: %w", err),
		}
	}

	return resp, nil
}
