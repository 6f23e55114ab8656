package web

import (
	"net/http"
	"regexp"
	"strings"
)

// userRef is the optional user block mutation payloads may carry.
type userRef struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Single-sign-on proxies sometimes forward the literal strings "undefined" or
// "undefined undefined" when the identity claim is missing; those count as absent.
var undefinedActor = regexp.MustCompile(`(?i)^undefined(?:\s+undefined)?$`)

func cleanActor(v string) string {
	s := strings.TrimSpace(v)
	if s == "" || undefinedActor.MatchString(s) {
		return ""
	}
	return s
}

// resolveActor determines who performed a mutation. Headers win over the body
// because the identity proxy sets them on every authenticated request; the
// body block is a fallback for direct API callers.
func resolveActor(r *http.Request, user *userRef) string {
	candidates := []string{
		r.Header.Get("X-User-Name"),
		r.Header.Get("X-User-Email"),
		r.Header.Get("X-Ms-Client-Principal-Name"),
	}
	if user != nil {
		candidates = append(candidates, user.Name, user.Email)
	}
	for _, c := range candidates {
		if s := cleanActor(c); s != "" {
			return s
		}
	}
	return "System"
}
