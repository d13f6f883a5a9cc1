package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/bgv-gateway/storage"
	"github.com/rs/zerolog/log"
)

const cookieBucket = "cookies"

type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"httpOnly,omitempty"`
}

// PersistentJar is a cookie jar that writes every cookie it is given to a
// storage.KV, keyed by origin, and reloads them on creation. It keeps the
// refresh cookie alive between CLI invocations.
type PersistentJar struct {
	jar *cookiejar.Jar
	kv  storage.KV

	mu sync.Mutex
}

var _ http.CookieJar = (*PersistentJar)(nil)

func NewPersistentJar(kv storage.KV) (*PersistentJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	p := &PersistentJar{jar: jar, kv: kv}

	origins, err := kv.Keys(cookieBucket)
	if err != nil {
		return nil, fmt.Errorf("listing stored cookies: %w", err)
	}
	for _, origin := range origins {
		u, err := url.Parse(origin)
		if err != nil {
			continue
		}
		stored, err := p.load(origin)
		if err != nil {
			return nil, err
		}
		jar.SetCookies(u, toHTTPCookies(stored))
	}
	return p, nil
}

func (p *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	return p.jar.Cookies(u)
}

func (p *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	p.jar.SetCookies(u, cookies)

	p.mu.Lock()
	defer p.mu.Unlock()

	origin := u.Scheme + "://" + u.Host
	stored, err := p.load(origin)
	if err != nil {
		log.Err(err).Str("origin", origin).Msg("Failed to load stored cookies")
		return
	}
	now := time.Now()
	defPath := defaultCookiePath(u)
	for _, c := range cookies {
		delete(stored, c.Name)
		if c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(now)) {
			continue
		}
		expires := c.Expires
		if c.MaxAge > 0 {
			expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		stored[c.Name] = storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     cookiePath(c.Path, defPath),
			Domain:   c.Domain,
			Expires:  expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
	}

	if len(stored) == 0 {
		if err := p.kv.Delete(cookieBucket, origin); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Err(err).Str("origin", origin).Msg("Failed to delete stored cookies")
		}
		return
	}
	data, err := json.Marshal(stored)
	if err != nil {
		log.Err(err).Msg("Failed to encode cookies")
		return
	}
	if err := p.kv.Put(cookieBucket, origin, data); err != nil {
		log.Err(err).Str("origin", origin).Msg("Failed to store cookies")
	}
}

// defaultCookiePath is the RFC 6265 default-path of u: its directory, or "/".
func defaultCookiePath(u *url.URL) string {
	dir := u.Path
	if dir == "" || dir[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(dir, "/")
	if i == 0 {
		return "/"
	}
	return dir[:i]
}

func cookiePath(path, defPath string) string {
	if path == "" || path[0] != '/' {
		return defPath
	}
	return path
}

func (p *PersistentJar) load(origin string) (map[string]storedCookie, error) {
	stored := make(map[string]storedCookie)
	data, err := p.kv.Get(cookieBucket, origin)
	if errors.Is(err, storage.ErrNotFound) {
		return stored, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cookies for %s: %w", origin, err)
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decoding cookies for %s: %w", origin, err)
	}
	return stored, nil
}

func toHTTPCookies(stored map[string]storedCookie) []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	return cookies
}
