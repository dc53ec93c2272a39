package youtube

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const httpOnlyPrefix = "#HttpOnly_"

// ParseNetscape parses a Netscape cookies.txt stream as exported by browsers.
// Fields are tab separated: domain, subdomains flag, path, secure, expiry,
// name, value. Malformed lines are skipped.
func ParseNetscape(r io.Reader) ([]*http.Cookie, error) {
	var cookies []*http.Cookie
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 7 {
			continue
		}
		cookie := &http.Cookie{
			Domain:   parts[0],
			Path:     parts[2],
			Secure:   strings.EqualFold(parts[3], "TRUE"),
			Name:     parts[5],
			Value:    parts[6],
			HttpOnly: httpOnly,
		}
		if expires, err := strconv.ParseInt(parts[4], 10, 64); err == nil && expires > 0 {
			cookie.Expires = time.Unix(expires, 0)
		}
		cookies = append(cookies, cookie)
	}
	return cookies, scanner.Err()
}

// loadCookieJar builds a jar seeded from a cookies.txt file.
func loadCookieJar(path string) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if strings.TrimSpace(path) == "" {
		return jar, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cookie file: %w", err)
	}
	defer file.Close()

	cookies, err := ParseNetscape(file)
	if err != nil {
		return nil, fmt.Errorf("parse cookie file: %w", err)
	}
	byHost := make(map[string][]*http.Cookie)
	for _, cookie := range cookies {
		host := strings.TrimPrefix(cookie.Domain, ".")
		if host == "" {
			continue
		}
		byHost[host] = append(byHost[host], cookie)
	}
	for host, list := range byHost {
		jar.SetCookies(&url.URL{Scheme: "https", Host: host, Path: "/"}, list)
	}
	return jar, nil
}
