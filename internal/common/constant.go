package common

const (
	// AccessTokenCookieName carries the signed access token.
	AccessTokenCookieName = "access_token"
	// RefreshTokenCookieName carries the opaque refresh token.
	RefreshTokenCookieName = "refresh_token"
	// XsrfTokenHeaderName carries the XSRF token paired with the access token.
	XsrfTokenHeaderName = "X-XSRF-Token"
	// CookiePath scopes both session cookies.
	CookiePath = "/api/"
)
