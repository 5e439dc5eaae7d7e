package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/clipstream/accounts/internal/apierr"
	"github.com/clipstream/accounts/internal/logger"
	"github.com/clipstream/accounts/internal/model"
)

const maxUploadSize = 32 << 20 // 32 MiB multipart memory cap

// AccountService defines the operations the account endpoints delegate to.
type AccountService interface {
	Register(ctx context.Context, params model.RegisterParams) (model.User, error)
	Login(ctx context.Context, params model.LoginParams) (model.User, model.TokenPair, error)
	RefreshSession(ctx context.Context, refreshToken string) (model.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, email string) (model.User, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, file *model.FileUpload) (model.User, error)
	UpdateCoverImage(ctx context.Context, userID uuid.UUID, file *model.FileUpload) (model.User, error)
}

// Account handles the HTTP endpoints for registration, sessions and
// account mutations.
type Account struct {
	service        AccountService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAccount creates a new Account handler.
func NewAccount(service AccountService, contextManager model.ContextManager, logger *logger.Logger) *Account {
	return &Account{
		service:        service,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register handles multipart registration: text fields plus a mandatory
// avatar file and an optional cover image file.
func (h *Account) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, h.logger, apierr.NewValidation("invalid multipart form"))
		return
	}

	params := model.RegisterParams{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		FullName: r.FormValue("fullName"),
		Password: r.FormValue("password"),
	}

	avatar, closeAvatar, err := formFile(r, "avatar")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if closeAvatar != nil {
		defer closeAvatar()
	}
	params.Avatar = avatar

	cover, closeCover, err := formFile(r, "coverImage")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if closeCover != nil {
		defer closeCover()
	}
	params.Cover = cover

	user, err := h.service.Register(r.Context(), params)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := toUserResponse(user)
	writeJSON(w, http.StatusCreated, resp, "user registered successfully")
}

// Login verifies credentials and issues a session pair, delivered both as
// cookies and in the response body.
func (h *Account) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apierr.NewValidation("invalid request body"))
		return
	}

	user, pair, err := h.service.Login(r.Context(), model.LoginParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	setSessionCookies(w, pair)
	u := toUserResponse(user)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:         &u,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "user logged in successfully")
}

// Refresh rotates the refresh token presented via cookie or request body.
func (h *Account) Refresh(w http.ResponseWriter, r *http.Request) {
	tokenString := ""
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		tokenString = c.Value
	}
	if tokenString == "" && r.Body != nil {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		// A missing or non-JSON body just means no token was supplied.
		_ = json.NewDecoder(r.Body).Decode(&req)
		tokenString = req.RefreshToken
	}

	pair, err := h.service.RefreshSession(r.Context(), tokenString)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "access token refreshed")
}

// Logout clears the stored refresh token and discards both cookies.
func (h *Account) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apierr.NewUnauthorized(nil))
		return
	}

	if err := h.service.Logout(r.Context(), user.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	clearSessionCookies(w)
	writeJSON(w, http.StatusOK, struct{}{}, "user logged out")
}

// CurrentUser returns the gate-resolved account.
func (h *Account) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apierr.NewUnauthorized(nil))
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user), "user fetched successfully")
}

// ChangePassword verifies the old password and sets a new one. The
// current session stays valid.
func (h *Account) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apierr.NewUnauthorized(nil))
		return
	}

	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apierr.NewValidation("invalid request body"))
		return
	}

	if err := h.service.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{}, "password changed successfully")
}

// UpdateProfile replaces the account's full name and email.
func (h *Account) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apierr.NewUnauthorized(nil))
		return
	}

	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apierr.NewValidation("invalid request body"))
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), user.ID, req.FullName, req.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(updated), "account details updated successfully")
}

// UpdateAvatar replaces the account's avatar image.
func (h *Account) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.service.UpdateAvatar, "avatar changed successfully")
}

// UpdateCoverImage replaces the account's cover image.
func (h *Account) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.service.UpdateCoverImage, "cover image changed successfully")
}

func (h *Account) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, userID uuid.UUID, file *model.FileUpload) (model.User, error),
	message string,
) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apierr.NewUnauthorized(nil))
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, h.logger, apierr.NewValidation("invalid multipart form"))
		return
	}

	file, closeFile, err := formFile(r, field)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if closeFile != nil {
		defer closeFile()
	}

	updated, err := update(r.Context(), user.ID, file)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(updated), message)
}

// formFile opens the named multipart file if present. A missing file is
// not an error here; the service decides whether it was mandatory.
func formFile(r *http.Request, field string) (*model.FileUpload, func(), error) {
	f, fh, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, nil
		}
		return nil, nil, apierr.NewValidation("invalid " + field + " file")
	}

	upload := &model.FileUpload{
		Reader:      f,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
	}
	return upload, func() { _ = f.Close() }, nil
}
