package downloader

import (
	"net/url"
	"strings"

	"github.com/cesargomez89/downpour/internal/constants"
)

// Matcher reports whether a hostname belongs to a platform.
type Matcher func(host string) bool

// Registry maps URL hosts to platform names. Matchers are consulted in
// registration order and the first hit wins.
type Registry struct {
	order    []string
	matchers map[string]Matcher
}

func NewRegistry() *Registry {
	return &Registry{matchers: make(map[string]Matcher)}
}

func (r *Registry) Register(platform string, m Matcher) {
	if _, ok := r.matchers[platform]; !ok {
		r.order = append(r.order, platform)
	}
	r.matchers[platform] = m
}

// Detect returns the platform for a URL, or the generic platform when no
// matcher claims the host or the URL does not parse.
func (r *Registry) Detect(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return constants.PlatformGeneric
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	for _, name := range r.order {
		if r.matchers[name](host) {
			return name
		}
	}
	return constants.PlatformGeneric
}

func hostIs(domains ...string) Matcher {
	return func(host string) bool {
		for _, d := range domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return true
			}
		}
		return false
	}
}

// DefaultRegistry knows the platforms yt-dlp handles natively here.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(constants.PlatformYouTube, hostIs("youtube.com", "youtu.be", "music.youtube.com"))
	r.Register(constants.PlatformSoundCloud, hostIs("soundcloud.com"))
	r.Register(constants.PlatformVimeo, hostIs("vimeo.com"))
	return r
}
