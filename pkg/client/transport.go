package client

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

var errMissingHost = errors.New("proxy URL needs a scheme and host")

// decodingTransport advertises brotli and gzip and decodes the response body
// so callers always read identity content. It also fills in the User-Agent.
type decodingTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req
	needUA := req.Header.Get("User-Agent") == "" && t.userAgent != ""
	needAE := req.Header.Get("Accept-Encoding") == "" && req.Header.Get("Range") == ""
	if needUA || needAE {
		r = req.Clone(req.Context())
		if needUA {
			r.Header.Set("User-Agent", t.userAgent)
		}
		if needAE {
			r.Header.Set("Accept-Encoding", "br, gzip")
		}
	}

	resp, err := t.base.RoundTrip(r)
	if err != nil || !needAE {
		return resp, err
	}

	var body io.ReadCloser
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		body = &wrappedBody{Reader: brotli.NewReader(resp.Body), closer: resp.Body}
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		body = &wrappedBody{Reader: gz, closer: resp.Body}
	default:
		return resp, nil
	}
	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

type wrappedBody struct {
	io.Reader
	closer io.Closer
}

func (b *wrappedBody) Close() error { return b.closer.Close() }
