package types

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// Page is the raw result of fetching one locator.
type Page struct {
	// Locator is the address that was requested.
	Locator Locator

	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response HTTP headers.
	Headers http.Header

	// Body is the raw response body bytes.
	Body []byte

	// ContentType is the MIME type of the response.
	ContentType string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// Doc is a parsed goquery document (lazily loaded).
	Doc *goquery.Document

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	// FetchedAt is when this page was received.
	FetchedAt time.Time
}

// NewPage creates a Page from an http.Response and its already-read body.
func NewPage(loc Locator, httpResp *http.Response, body []byte, duration time.Duration) *Page {
	finalURL := string(loc)
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		finalURL = httpResp.Request.URL.String()
	}
	return &Page{
		Locator:       loc,
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		ContentType:   httpResp.Header.Get("Content-Type"),
		FinalURL:      finalURL,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// NewRenderedPage creates a Page from headless browser output.
func NewRenderedPage(loc Locator, statusCode int, body []byte, finalURL string, duration time.Duration) *Page {
	return &Page{
		Locator:       loc,
		StatusCode:    statusCode,
		Headers:       make(http.Header),
		Body:          body,
		ContentType:   "text/html; charset=utf-8",
		FinalURL:      finalURL,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// Document returns a parsed goquery document, lazily initializing it.
// Bodies in a non-UTF-8 charset are transcoded first.
func (p *Page) Document() (*goquery.Document, error) {
	if p.Doc != nil {
		return p.Doc, nil
	}

	var r io.Reader = bytes.NewReader(p.Body)
	if p.ContentType != "" {
		decoded, err := charset.NewReader(r, p.ContentType)
		if err == nil {
			r = decoded
		}
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.Locator, err)
	}
	if u, err := url.Parse(p.FinalURL); err == nil {
		doc.Url = u
	}
	p.Doc = doc
	return doc, nil
}

// IsSuccess returns true if the response status is 2xx.
func (p *Page) IsSuccess() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}
