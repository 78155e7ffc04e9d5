package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/cryptox"
	"github.com/dmitrijs2005/accountkeeper/internal/server/users"
)

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.dir.Authenticate(r.Context(), req.identifier(), req.Password, users.AuthMethod(req.AuthMethod))
	if err != nil {
		h.metrics.signIns.WithLabelValues(req.AuthMethod, "error").Inc()
		h.writeError(w, r, err)
		return
	}
	if !res.Authorized {
		h.metrics.signIns.WithLabelValues(req.AuthMethod, "rejected").Inc()
		h.writeError(w, r, common.ErrBadCredentials)
		return
	}

	set, err := h.tokens.GenerateToken(r.Context(), res.User)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.metrics.signIns.WithLabelValues(req.AuthMethod, "ok").Inc()
	if h.events != nil {
		h.events.Record(r.Context(), "auth", "sign in "+res.User.ID)
	}
	writeSession(w, set, res.User)
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(common.RefreshTokenCookieName)
	if err != nil || c.Value == "" {
		h.writeError(w, r, common.ErrMissingRefreshToken)
		return
	}

	set, user, err := h.tokens.Refresh(r.Context(), c.Value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSession(w, set, user)
}

func (h *Handler) getAuth(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())
	public := s.user.Public()
	writeJSON(w, http.StatusOK, authBody{IsAuth: true, User: &public})
}

// createUser generates a password when none is given; sendPasswordByEmail
// mails it, and a mail failure does not undo the creation.
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	password := req.Password
	if password == "" {
		generated, err := cryptox.CreatePassword(cryptox.DefaultPasswordOptions())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		password = generated
	}

	res, err := h.dir.New(r.Context(), users.NewUser{
		Email:     req.Email,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Role:      req.Role,
	}, password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.SendPasswordByEmail {
		if err := h.dir.SendPasswordByEmail(r.Context(), req.Email, password); err != nil {
			h.log.Error(r.Context(), "error sending password", "id", res.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.dir.GetAll(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.dir.Get(r.Context(), users.Lookup{ID: r.PathValue("id")})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// updateUser lets admins change anything and everyone else change their own
// record except email and role.
func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())
	id := r.PathValue("id")

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	admin, err := h.dir.IsAdmin(r.Context(), s.accessToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !admin && (s.user.ID != id || req.touchesProtectedFields()) {
		h.writeError(w, r, common.ErrUserNotAuthorized)
		return
	}

	res, err := h.dir.Update(r.Context(), users.UpdateUser{
		ID:        id,
		Email:     req.Email,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Role:      req.Role,
		Password:  req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	res, err := h.dir.Delete(r.Context(), users.Lookup{ID: r.PathValue("id")})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// askResetPassword answers 200 whether or not the email is registered.
func (h *Handler) askResetPassword(w http.ResponseWriter, r *http.Request) {
	var req askResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log.Debug(r.Context(), "ignoring reset request", "error", err)
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}

	if err := h.dir.SendAskResetPassword(r.Context(), req.Email); err != nil {
		h.log.Info(r.Context(), "reset password not sent", "error", err)
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, err := h.dir.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"passwordReset": true})
}
