package web

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	profileCookie = "conatus_profile"
	profileMaxAge = 365 * 24 * 60 * 60
)

type profileKey struct{}

// withProfile makes sure every request carries a profile ID, issuing a new
// cookie when the request has none or an unparsable one.
func (s *Server) withProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(profileCookie); err == nil {
			if u, err := uuid.Parse(c.Value); err == nil {
				id = u.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     profileCookie,
				Value:    id,
				Path:     s.cookiePath(),
				MaxAge:   profileMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), profileKey{}, id)))
	})
}

func profileFrom(ctx context.Context) string {
	id, _ := ctx.Value(profileKey{}).(string)
	return id
}

func (s *Server) cookiePath() string {
	if s.basePath == "" {
		return "/"
	}
	return s.basePath
}
