package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

type ctxKey int

const sessionKey ctxKey = iota

type sessionInfo struct {
	user        *models.User
	claims      *auth.Claims
	accessToken string
}

func sessionFromContext(ctx context.Context) (*sessionInfo, bool) {
	s, ok := ctx.Value(sessionKey).(*sessionInfo)
	return s, ok
}

// xsrfFromRequest reads the XSRF token from its header, or from the
// sub-protocol list of a WebSocket handshake since browsers cannot set
// custom headers there.
func xsrfFromRequest(r *http.Request) string {
	if websocket.IsWebSocketUpgrade(r) {
		if protocols := websocket.Subprotocols(r); len(protocols) > 0 {
			return protocols[0]
		}
		return ""
	}
	return r.Header.Get(common.XsrfTokenHeaderName)
}

// requireSession rejects the request with 401 unless the access-token
// cookie and the XSRF token form a valid pair.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var accessToken string
		if c, err := r.Cookie(common.AccessTokenCookieName); err == nil {
			accessToken = c.Value
		}

		user, claims, err := h.sessions.Validate(r.Context(), accessToken, xsrfFromRequest(r))
		if err != nil {
			h.writeUnauthorized(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, &sessionInfo{user: user, claims: claims, accessToken: accessToken})
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin is requireSession plus a role check; non-admins get 403.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.requireSession(func(w http.ResponseWriter, r *http.Request) {
		s, _ := sessionFromContext(r.Context())

		ok, err := h.dir.IsAdmin(r.Context(), s.accessToken)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if !ok {
			h.writeError(w, r, common.ErrUserNotAuthorized)
			return
		}
		next(w, r)
	})
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || h.originAllowed(origin)
}

func (h *Handler) originAllowed(origin string) bool {
	return h.anyOrig || h.origins[origin]
}

// cors answers preflight requests and tags responses for allow-listed
// origins. Credentials are allowed, so the origin is echoed, never "*".
func (h *Handler) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && h.originAllowed(origin) {
			hdr := w.Header()
			hdr.Set("Access-Control-Allow-Origin", origin)
			hdr.Set("Access-Control-Allow-Credentials", "true")
			hdr.Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				hdr.Set("Access-Control-Allow-Methods", strings.Join([]string{
					http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
				}, ", "))
				hdr.Set("Access-Control-Allow-Headers", "Content-Type, "+common.XsrfTokenHeaderName)
				hdr.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
