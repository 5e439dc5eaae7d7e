// Package service contains the account business logic: registration,
// credential verification, session issuance and rotation, and the
// session-guarded account mutations.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clipstream/accounts/internal/apierr"
	"github.com/clipstream/accounts/internal/logger"
	"github.com/clipstream/accounts/internal/model"
)

var (
	errMissingToken = errors.New("missing refresh token")
	errUnknownUser  = errors.New("unknown user")
	errBadPassword  = errors.New("password verification failed")
)

type Auth struct {
	userStore    model.UserStore
	storage      model.FileStorage
	tokenManager model.TokenManager
	logger       *logger.Logger
}

func NewAuth(
	userStore model.UserStore,
	storage model.FileStorage,
	tokenManager model.TokenManager,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		userStore:    userStore,
		storage:      storage,
		tokenManager: tokenManager,
		logger:       logger,
	}
}

// Register validates the submitted fields, checks username/email
// uniqueness, uploads the mandatory avatar (and the optional cover image)
// and only then creates the account. An avatar upload failure aborts the
// whole registration; a crash between upload and create can orphan the
// uploaded object, which is an accepted risk.
func (a *Auth) Register(ctx context.Context, params model.RegisterParams) (model.User, error) {
	username := strings.ToLower(strings.TrimSpace(params.Username))
	email := strings.TrimSpace(params.Email)
	fullName := strings.TrimSpace(params.FullName)

	if username == "" || email == "" || fullName == "" || strings.TrimSpace(params.Password) == "" {
		return model.User{}, apierr.NewValidation("all fields are required")
	}

	_, err := a.userStore.GetByLogin(ctx, username, email)
	if err == nil {
		return model.User{}, apierr.NewConflict("user with email or username already exists")
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, apierr.NewDependency("failed to check existing users", err)
	}

	if params.Avatar == nil {
		return model.User{}, apierr.NewValidation("avatar file is required")
	}

	avatarURL, err := a.uploadImage(ctx, "avatars", *params.Avatar)
	if err != nil {
		return model.User{}, apierr.NewDependency("failed to upload avatar", err)
	}

	var coverURL string
	if params.Cover != nil {
		coverURL, err = a.uploadImage(ctx, "covers", *params.Cover)
		if err != nil {
			// The cover image is optional; the account is still usable
			// without one, so registration proceeds.
			a.logger.Warn("Auth service: cover image upload failed during registration",
				"username", username,
				"error", err.Error())
			coverURL = ""
		}
	}

	passwordHash, err := hashPassword(params.Password)
	if err != nil {
		return model.User{}, apierr.NewInternal(err)
	}

	user := model.User{
		ID:            uuid.New(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		PasswordHash:  passwordHash,
	}

	created, err := a.userStore.Create(ctx, user)
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			return model.User{}, apierr.NewConflict("user with email or username already exists")
		}
		return model.User{}, apierr.NewDependency("failed to create user", err)
	}

	a.logger.Info("Auth service: user registered",
		"user_id", created.ID,
		"username", created.Username)

	return created.Sanitized(), nil
}

// Login verifies the password and issues a fresh session pair, replacing
// whatever refresh token the account held before. Unknown accounts and
// wrong passwords are indistinguishable to the caller.
func (a *Auth) Login(ctx context.Context, params model.LoginParams) (model.User, model.TokenPair, error) {
	username := strings.ToLower(strings.TrimSpace(params.Username))
	email := strings.TrimSpace(params.Email)

	if username == "" && email == "" {
		return model.User{}, model.TokenPair{}, apierr.NewValidation("username or email is required")
	}

	user, err := a.userStore.GetByLogin(ctx, username, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, model.TokenPair{}, apierr.NewUnauthorized(errUnknownUser)
		}
		return model.User{}, model.TokenPair{}, apierr.NewDependency("failed to get user", err)
	}

	if !checkPassword(user.PasswordHash, params.Password) {
		return model.User{}, model.TokenPair{}, apierr.NewUnauthorized(errBadPassword)
	}

	pair, err := a.issueSession(ctx, user.ID)
	if err != nil {
		return model.User{}, model.TokenPair{}, err
	}

	a.logger.Info("Auth service: user logged in", "user_id", user.ID)

	return user.Sanitized(), pair, nil
}

// RefreshSession rotates the presented refresh token. The token must be
// well signed, unexpired, and byte-identical to the single slot stored on
// the account; a rotated-out token fails here even though it still
// verifies cryptographically. Persisting the new token and invalidating
// the old one are the same compare-and-set write.
func (a *Auth) RefreshSession(ctx context.Context, presented string) (model.TokenPair, error) {
	if presented == "" {
		return model.TokenPair{}, apierr.NewUnauthorized(errMissingToken)
	}

	userID, err := a.tokenManager.ParseRefreshToken(presented)
	if err != nil {
		return model.TokenPair{}, apierr.NewUnauthorized(err)
	}

	user, err := a.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.TokenPair{}, apierr.NewUnauthorized(errUnknownUser)
		}
		return model.TokenPair{}, apierr.NewDependency("failed to get user", err)
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(user.RefreshToken)) != 1 {
		return model.TokenPair{}, apierr.NewUnauthorized(model.ErrTokenMismatch)
	}

	pair, err := a.generatePair(user.ID)
	if err != nil {
		return model.TokenPair{}, apierr.NewInternal(err)
	}

	if err := a.userStore.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, model.ErrTokenMismatch) {
			// A concurrent rotation won the compare-and-set; this token
			// is spent.
			return model.TokenPair{}, apierr.NewUnauthorized(err)
		}
		return model.TokenPair{}, apierr.NewDependency("failed to persist refresh token", err)
	}

	a.logger.Info("Auth service: session refreshed", "user_id", user.ID)

	return pair, nil
}

// Logout clears the account's refresh token slot. Logging out twice is
// not an error.
func (a *Auth) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := a.userStore.ClearRefreshToken(ctx, userID); err != nil {
		return apierr.NewDependency("failed to clear refresh token", err)
	}

	a.logger.Info("Auth service: user logged out", "user_id", userID)

	return nil
}

// CurrentUser resolves an access-token subject to a sanitized account.
// A vanished account surfaces as an authentication failure, same as a bad
// token, so the session gate leaks nothing about why it rejected.
func (a *Auth) CurrentUser(ctx context.Context, userID uuid.UUID) (model.User, error) {
	user, err := a.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, apierr.NewUnauthorized(errUnknownUser)
		}
		return model.User{}, apierr.NewDependency("failed to get user", err)
	}

	return user.Sanitized(), nil
}

// ResolveSession is the session gate: it verifies an inbound access token
// and resolves it to a sanitized account. A missing token, a bad or
// expired signature, and a vanished account all come back as the same
// authentication failure.
func (a *Auth) ResolveSession(ctx context.Context, accessToken string) (model.User, error) {
	if accessToken == "" {
		return model.User{}, apierr.NewUnauthorized(errMissingToken)
	}

	userID, err := a.tokenManager.ParseAccessToken(accessToken)
	if err != nil {
		return model.User{}, apierr.NewUnauthorized(err)
	}

	return a.CurrentUser(ctx, userID)
}

// ChangePassword verifies the old password and re-hashes the new one.
// The current session's refresh token is left in place.
func (a *Auth) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apierr.NewValidation("new password is required")
	}

	user, err := a.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apierr.NewUnauthorized(errUnknownUser)
		}
		return apierr.NewDependency("failed to get user", err)
	}

	if !checkPassword(user.PasswordHash, oldPassword) {
		return apierr.NewUnauthorized(errBadPassword)
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return apierr.NewInternal(err)
	}

	if err := a.userStore.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return apierr.NewDependency("failed to update password", err)
	}

	a.logger.Info("Auth service: password changed", "user_id", userID)

	return nil
}

// UpdateProfile replaces the account's full name and email.
func (a *Auth) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, email string) (model.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" {
		return model.User{}, apierr.NewValidation("all fields are required")
	}

	user, err := a.userStore.UpdateProfile(ctx, userID, fullName, email)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			return model.User{}, apierr.NewNotFound("user does not exist")
		case errors.Is(err, model.ErrConflict):
			return model.User{}, apierr.NewConflict("email already in use")
		}
		return model.User{}, apierr.NewDependency("failed to update profile", err)
	}

	return user.Sanitized(), nil
}

// UpdateAvatar replaces the account's avatar: the old remote object is
// deleted first, then the new file is uploaded, then the URL is persisted.
// A deletion failure aborts before anything is uploaded; an upload failure
// after a confirmed delete leaves the account without an avatar until the
// call is retried, which is an accepted risk.
func (a *Auth) UpdateAvatar(ctx context.Context, userID uuid.UUID, file *model.FileUpload) (model.User, error) {
	if file == nil {
		return model.User{}, apierr.NewValidation("avatar file is missing")
	}

	user, err := a.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, apierr.NewNotFound("user does not exist")
		}
		return model.User{}, apierr.NewDependency("failed to get user", err)
	}

	if key := objectKeyFromURL(user.AvatarURL); key != "" {
		if err := a.storage.Delete(ctx, key); err != nil {
			return model.User{}, apierr.NewDependency("failed to delete old avatar", err)
		}
	}

	url, err := a.uploadImage(ctx, "avatars", *file)
	if err != nil {
		return model.User{}, apierr.NewDependency("failed to upload avatar", err)
	}

	updated, err := a.userStore.UpdateAvatarURL(ctx, userID, url)
	if err != nil {
		return model.User{}, apierr.NewDependency("failed to update avatar url", err)
	}

	a.logger.Info("Auth service: avatar updated", "user_id", userID)

	return updated.Sanitized(), nil
}

// UpdateCoverImage replaces the account's cover image with the same
// delete-then-upload sequence as UpdateAvatar. Unlike the avatar, a cover
// image must already be set.
func (a *Auth) UpdateCoverImage(ctx context.Context, userID uuid.UUID, file *model.FileUpload) (model.User, error) {
	if file == nil {
		return model.User{}, apierr.NewValidation("cover image file is missing")
	}

	user, err := a.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, apierr.NewNotFound("user does not exist")
		}
		return model.User{}, apierr.NewDependency("failed to get user", err)
	}

	key := objectKeyFromURL(user.CoverImageURL)
	if key == "" {
		return model.User{}, apierr.NewValidation("cover image is missing")
	}
	if err := a.storage.Delete(ctx, key); err != nil {
		return model.User{}, apierr.NewDependency("failed to delete old cover image", err)
	}

	url, err := a.uploadImage(ctx, "covers", *file)
	if err != nil {
		return model.User{}, apierr.NewDependency("failed to upload cover image", err)
	}

	updated, err := a.userStore.UpdateCoverImageURL(ctx, userID, url)
	if err != nil {
		return model.User{}, apierr.NewDependency("failed to update cover image url", err)
	}

	a.logger.Info("Auth service: cover image updated", "user_id", userID)

	return updated.Sanitized(), nil
}

// issueSession mints an access/refresh pair and persists the refresh
// token in one step, so a caller can never hand out a pair whose refresh
// half was not stored.
func (a *Auth) issueSession(ctx context.Context, userID uuid.UUID) (model.TokenPair, error) {
	pair, err := a.generatePair(userID)
	if err != nil {
		return model.TokenPair{}, apierr.NewInternal(err)
	}

	if err := a.userStore.SetRefreshToken(ctx, userID, pair.RefreshToken); err != nil {
		return model.TokenPair{}, apierr.NewDependency("failed to persist refresh token", err)
	}

	return pair, nil
}

func (a *Auth) generatePair(userID uuid.UUID) (model.TokenPair, error) {
	access, err := a.tokenManager.GenerateAccessToken(userID)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := a.tokenManager.GenerateRefreshToken(userID)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (a *Auth) uploadImage(ctx context.Context, prefix string, file model.FileUpload) (string, error) {
	key := prefix + "/" + uuid.NewString()
	return a.storage.Upload(ctx, key, file.Reader, file.Size, file.ContentType)
}

// objectKeyFromURL recovers the storage key ("avatars/<id>") from a
// stored public URL.
func objectKeyFromURL(url string) string {
	parts := strings.Split(url, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
