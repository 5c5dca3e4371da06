package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var client = &http.Client{Timeout: 30 * time.Second}

// SetTimeout overrides the default timeout applied to every request.
func SetTimeout(timeout time.Duration) {
	client.Timeout = timeout
}

// NewHTTPRequest builds and performs an http call, returning the status code
// and the raw response body.
func NewHTTPRequest(method, url, bodyString string, header map[string]string) (int, string, error) {
	switch method {
	case "GET":
		return do("GET", url, "", header)
	case "POST":
		return do("POST", url, bodyString, header)
	default:
		return 0, "", fmt.Errorf("verb not supported %s", method)
	}
}

func do(method, url, bodyString string, header map[string]string) (int, string, error) {
	var body io.Reader
	if bodyString != "" {
		body = strings.NewReader(bodyString)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return 0, "", err
	}

	for key, value := range header {
		req.Header.Set(key, value)
	}

	rs, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer rs.Body.Close()

	bodyBytes, err := io.ReadAll(rs.Body)
	if err != nil {
		return 0, "", err
	}

	return rs.StatusCode, string(bodyBytes), nil
}
