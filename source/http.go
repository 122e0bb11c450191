package source

import (
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// HTTP reads byte ranges from a remote file via HTTP Range requests. It is
// safe for concurrent use; each ReadAt issues its own request.
type HTTP struct {
	client *http.Client
	url    string
}

// NewHTTP returns a range source for the given URL. A nil client uses
// http.DefaultClient.
func NewHTTP(client *http.Client, url string) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{client: client, url: url}
}

// ReadAt implements io.ReaderAt with a single Range request. Servers that
// ignore the Range header and answer 200 are rejected rather than silently
// downloading the whole file.
func (s *HTTP) ReadAt(p []byte, off int64) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	req, err := http.NewRequest(http.MethodGet, s.url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "building range request")
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1))

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "range request at offset %d", off)
	}
	defer utils.UncheckedErrorFunc(resp.Body.Close)

	if resp.StatusCode != http.StatusPartialContent {
		return 0, errors.Errorf("expected 206 Partial Content, got %s", resp.Status)
	}
	n, err = io.ReadFull(resp.Body, p)
	if err != nil {
		return n, errors.Wrapf(err, "reading %d byte range body", len(p))
	}
	return n, nil
}

// Size asks the server for the total file size.
func (s *HTTP) Size() (int64, error) {
	resp, err := s.client.Head(s.url)
	if err != nil {
		return 0, errors.Wrap(err, "head request")
	}
	defer utils.UncheckedErrorFunc(resp.Body.Close)
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("head request returned %s", resp.Status)
	}
	if resp.ContentLength < 0 {
		return 0, errors.New("server did not report a content length")
	}
	return resp.ContentLength, nil
}
