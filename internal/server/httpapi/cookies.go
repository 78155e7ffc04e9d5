package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// sessionBody is returned by sign-in and refresh. Expiry values are
// milliseconds.
type sessionBody struct {
	AccessTokenExpiresIn  int64              `json:"accessTokenExpiresIn"`
	RefreshTokenExpiresIn int64              `json:"refreshTokenExpiresIn"`
	XsrfToken             string             `json:"xsrfToken"`
	IsAuth                bool               `json:"isAuth"`
	User                  *models.PublicUser `json:"user"`
}

type authBody struct {
	IsAuth bool               `json:"isAuth"`
	User   *models.PublicUser `json:"user"`
}

func sessionCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     common.CookiePath,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// writeSession sets both token cookies and the session body.
func writeSession(w http.ResponseWriter, set *auth.TokenSet, user *models.User) {
	http.SetCookie(w, sessionCookie(common.AccessTokenCookieName, set.AccessToken, set.AccessTokenExpiresIn))
	http.SetCookie(w, sessionCookie(common.RefreshTokenCookieName, set.RefreshToken, set.RefreshTokenExpiresIn))

	public := user.Public()
	writeJSON(w, http.StatusOK, sessionBody{
		AccessTokenExpiresIn:  set.AccessTokenExpiresIn.Milliseconds(),
		RefreshTokenExpiresIn: set.RefreshTokenExpiresIn.Milliseconds(),
		XsrfToken:             set.XsrfToken,
		IsAuth:                true,
		User:                  &public,
	})
}
