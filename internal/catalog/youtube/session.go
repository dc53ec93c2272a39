package youtube

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"fetchmedia/internal/config"
)

const visitorHeader = "X-Goog-Visitor-Id"

// Session holds the anti-detection strategy applied to every catalog request:
// user agent pool, proxy rotation, cookie persistence, and the proof-of-origin
// token. Values are forwarded as configured.
type Session struct {
	UserAgents  []string
	Proxies     []*url.URL
	CookieFile  string
	POToken     string
	VisitorData string
	Timeout     time.Duration

	proxyCursor atomic.Uint64
	pick        func(n int) int
}

// NewSession builds a Session from catalog configuration.
func NewSession(cfg config.Catalog) (*Session, error) {
	session := &Session{
		UserAgents:  append([]string(nil), cfg.UserAgents...),
		CookieFile:  cfg.CookieFile,
		POToken:     cfg.POToken,
		VisitorData: cfg.VisitorData,
	}
	if cfg.HTTPTimeout > 0 {
		session.Timeout = time.Duration(cfg.HTTPTimeout) * time.Second
	}
	for _, raw := range cfg.Proxies {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", raw)
		}
		session.Proxies = append(session.Proxies, parsed)
	}
	return session, nil
}

// HTTPClient returns a client whose transport applies the session strategy.
func (s *Session) HTTPClient() (*http.Client, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("default transport is not *http.Transport")
	}
	transport := base.Clone()
	if len(s.Proxies) > 0 {
		transport.Proxy = s.nextProxy
	}
	jar, err := loadCookieJar(s.CookieFile)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: &sessionTransport{session: s, next: transport},
		Jar:       jar,
		Timeout:   s.Timeout,
	}, nil
}

func (s *Session) nextProxy(*http.Request) (*url.URL, error) {
	idx := s.proxyCursor.Add(1) - 1
	return s.Proxies[idx%uint64(len(s.Proxies))], nil
}

func (s *Session) userAgent() string {
	switch len(s.UserAgents) {
	case 0:
		return ""
	case 1:
		return s.UserAgents[0]
	}
	pick := s.pick
	if pick == nil {
		pick = rand.IntN
	}
	return s.UserAgents[pick(len(s.UserAgents))]
}

type sessionTransport struct {
	session *Session
	next    http.RoundTripper
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if ua := t.session.userAgent(); ua != "" {
		clone.Header.Set("User-Agent", ua)
	}
	if t.session.VisitorData != "" && clone.Header.Get(visitorHeader) == "" {
		clone.Header.Set(visitorHeader, t.session.VisitorData)
	}
	if t.session.POToken != "" && isMediaHost(clone.URL.Host) {
		q := clone.URL.Query()
		if q.Get("pot") == "" {
			q.Set("pot", t.session.POToken)
			clone.URL.RawQuery = q.Encode()
		}
	}
	return t.next.RoundTrip(clone)
}

func isMediaHost(host string) bool {
	host = strings.ToLower(host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	return strings.HasSuffix(host, ".googlevideo.com")
}
