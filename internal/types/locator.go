package types

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Locator is the address of one source document. It is both the fetch
// target and the deduplication key.
type Locator string

// String implements fmt.Stringer.
func (l Locator) String() string { return string(l) }

// Resolve makes a catalog-relative locator absolute against base.
func (l Locator) Resolve(base *url.URL) (Locator, error) {
	ref, err := url.Parse(strings.TrimSpace(string(l)))
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidLocator, l, err)
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", fmt.Errorf("%w %q: scheme must be http or https", ErrInvalidLocator, l)
	}
	ref.Fragment = ""
	return Locator(ref.String()), nil
}

// Key returns the canonical form used for visited-set membership:
// lowercased scheme and host, no fragment, no default port, sorted query
// and no trailing slash.
func (l Locator) Key() string {
	u, err := url.Parse(string(l))
	if err != nil {
		return string(l)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	host := u.Hostname()
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// Filename derives the document name from the last two path segments
// joined by an underscore, so /a/x/ and /b/x/ do not collide. Paths with
// fewer than two segments carry their query, so /?p=12 and /?p=13 differ.
func (l Locator) Filename() string {
	p := string(l)
	var query string
	if u, err := url.Parse(p); err == nil {
		p = u.Path
		query = queryToken(u.Query())
	}

	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(s); err == nil {
			s = unescaped
		}
		segments = append(segments, sanitizeSegment(s))
	}

	if len(segments) < 2 && query != "" {
		if len(segments) == 0 {
			segments = append(segments, "index")
		}
		segments[0] += "_" + query
	}

	switch len(segments) {
	case 0:
		return "index"
	case 1:
		return segments[0]
	default:
		return segments[len(segments)-2] + "_" + segments[len(segments)-1]
	}
}

// queryToken renders a query as a filename fragment with sorted keys,
// "p=12&lang=en" becoming "lang-en_p-12".
func queryToken(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	r := strings.NewReplacer("=", "-", "&", "_")
	return sanitizeSegment(r.Replace(q.Encode()))
}

func sanitizeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '-'
		}
		return r
	}, s)
}

// SameHost reports whether l points at the same host as base.
func (l Locator) SameHost(base *url.URL) bool {
	u, err := url.Parse(string(l))
	if err != nil || base == nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), base.Hostname())
}
