package pdf

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"charm.land/log/v2"
)

var pdfMagic = []byte("%PDF")

// Client is the Get/Head subset of fetch.Session the validator needs.
type Client interface {
	Get(ctx context.Context, url string) (*http.Response, error)
	Head(ctx context.Context, url string) (*http.Response, error)
}

// Validator confirms that a URL actually serves a PDF document.
type Validator struct {
	client       Client
	checkContent bool
	logger       *log.Logger
}

// NewValidator builds a validator on top of client. With checkContent set it
// additionally streams the first body bytes and requires the %PDF magic
// prefix, catching responses whose headers lie.
func NewValidator(client Client, checkContent bool, logger *log.Logger) *Validator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Validator{client: client, checkContent: checkContent, logger: logger}
}

// IsPDF reports whether url serves a PDF: status 200 with a PDF
// content-type, plus the magic-prefix check when enabled. Transport failures
// of any kind count as "not a PDF"; IsPDF never returns an error. On success
// meta carries content_type and, when the server sent them, content_length
// and last_modified.
func (v *Validator) IsPDF(ctx context.Context, url string) (meta map[string]string, ok bool) {
	resp, err := v.client.Head(ctx, url)
	if err != nil {
		v.logger.Debug("head failed", "url", url, "err", err)
		return nil, false
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Debug("head rejected", "url", url, "status", resp.StatusCode)
		return nil, false
	}

	ct := resp.Header.Get("Content-Type")
	if !isPDFContentType(ct) {
		v.logger.Debug("not a pdf content type", "url", url, "content_type", ct)
		return nil, false
	}

	if v.checkContent && !v.hasPDFPrefix(ctx, url) {
		return nil, false
	}

	meta = map[string]string{"content_type": ct}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		meta["content_length"] = cl
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		meta["last_modified"] = lm
	}
	return meta, true
}

// hasPDFPrefix streams just enough of the body to test the magic bytes. The
// connection is dropped rather than draining a multi-megabyte document.
func (v *Validator) hasPDFPrefix(ctx context.Context, url string) bool {
	resp, err := v.client.Get(ctx, url)
	if err != nil {
		v.logger.Debug("get failed", "url", url, "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	prefix := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(resp.Body, prefix); err != nil {
		v.logger.Debug("body read failed", "url", url, "err", err)
		return false
	}
	if !bytes.Equal(prefix, pdfMagic) {
		v.logger.Debug("magic prefix mismatch", "url", url)
		return false
	}
	return true
}

func isPDFContentType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "application/pdf")
}
