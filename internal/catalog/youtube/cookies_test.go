package youtube

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCookies = "# Netscape HTTP Cookie File\n" +
	".youtube.com\tTRUE\t/\tTRUE\t4102444800\tPREF\tf1=50000000\n" +
	"#HttpOnly_.youtube.com\tTRUE\t/\tTRUE\t4102444800\tLOGIN_INFO\tsecret\n" +
	"broken line\n" +
	"\n"

func TestParseNetscape(t *testing.T) {
	cookies, err := ParseNetscape(strings.NewReader(sampleCookies))
	if err != nil {
		t.Fatalf("ParseNetscape: %v", err)
	}
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	if cookies[0].Name != "PREF" || cookies[0].Value != "f1=50000000" || !cookies[0].Secure {
		t.Fatalf("unexpected first cookie %+v", cookies[0])
	}
	if cookies[0].HttpOnly {
		t.Fatal("plain line should not be HttpOnly")
	}
	if cookies[1].Name != "LOGIN_INFO" || !cookies[1].HttpOnly {
		t.Fatalf("unexpected http-only cookie %+v", cookies[1])
	}
	if cookies[1].Expires.Unix() != 4102444800 {
		t.Fatalf("unexpected expiry %v", cookies[1].Expires)
	}
}

func TestLoadCookieJarSeedsDomain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(path, []byte(sampleCookies), 0o600); err != nil {
		t.Fatalf("write cookies: %v", err)
	}
	jar, err := loadCookieJar(path)
	if err != nil {
		t.Fatalf("loadCookieJar: %v", err)
	}
	got := jar.Cookies(&url.URL{Scheme: "https", Host: "www.youtube.com", Path: "/watch"})
	if len(got) != 2 {
		t.Fatalf("expected cookies for subdomain, got %v", got)
	}
}

func TestLoadCookieJarMissingFile(t *testing.T) {
	if _, err := loadCookieJar(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error for missing cookie file")
	}
}
