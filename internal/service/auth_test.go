package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clipstream/accounts/internal/apierr"
	"github.com/clipstream/accounts/internal/mocks"
	"github.com/clipstream/accounts/internal/model"
	"github.com/clipstream/accounts/internal/testutil"
)

type authMocks struct {
	userStore    *mocks.UserStore
	storage      *mocks.FileStorage
	tokenManager *mocks.TokenManager
}

func newTestAuth(t *testing.T) (*Auth, authMocks) {
	m := authMocks{
		userStore:    mocks.NewUserStore(t),
		storage:      mocks.NewFileStorage(t),
		tokenManager: mocks.NewTokenManager(t),
	}
	return NewAuth(m.userStore, m.storage, m.tokenManager, testutil.MakeNoopLogger()), m
}

func hashForTest(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func testUpload() *model.FileUpload {
	return &model.FileUpload{
		Reader:      bytes.NewReader([]byte("image-bytes")),
		Size:        11,
		ContentType: "image/png",
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	return apierr.FromError(err).StatusCode
}

func TestAuth_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		auth, m := newTestAuth(t)

		params := model.RegisterParams{
			Username: "  Gopher ",
			Email:    "gopher@example.com",
			FullName: "Go Pher",
			Password: "secret-password",
			Avatar:   testUpload(),
		}

		m.userStore.On("GetByLogin", ctx, "gopher", "gopher@example.com").
			Return(model.User{}, model.ErrNotFound).Once()
		m.storage.On("Upload", ctx,
			mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, "avatars/") }),
			mock.Anything, int64(11), "image/png").
			Return("https://cdn.example.com/accounts-media/avatars/abc", nil).Once()
		m.userStore.On("Create", ctx, mock.MatchedBy(func(u model.User) bool {
			return u.Username == "gopher" &&
				u.Email == "gopher@example.com" &&
				u.AvatarURL == "https://cdn.example.com/accounts-media/avatars/abc" &&
				u.PasswordHash != "secret-password" &&
				bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret-password")) == nil
		})).Return(model.User{
			ID:           uuid.New(),
			Username:     "gopher",
			Email:        "gopher@example.com",
			FullName:     "Go Pher",
			AvatarURL:    "https://cdn.example.com/accounts-media/avatars/abc",
			PasswordHash: "stored-hash",
		}, nil).Once()

		created, err := auth.Register(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, "gopher", created.Username)
		assert.Empty(t, created.PasswordHash)
		assert.Empty(t, created.RefreshToken)
	})

	t.Run("missing fields", func(t *testing.T) {
		auth, _ := newTestAuth(t)

		_, err := auth.Register(ctx, model.RegisterParams{
			Username: "gopher",
			Password: "secret",
		})
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})

	t.Run("missing avatar", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByLogin", ctx, "gopher", "gopher@example.com").
			Return(model.User{}, model.ErrNotFound).Once()

		_, err := auth.Register(ctx, model.RegisterParams{
			Username: "gopher",
			Email:    "gopher@example.com",
			FullName: "Go Pher",
			Password: "secret",
		})
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})

	t.Run("duplicate user", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByLogin", ctx, "gopher", "gopher@example.com").
			Return(model.User{ID: uuid.New()}, nil).Once()

		_, err := auth.Register(ctx, model.RegisterParams{
			Username: "gopher",
			Email:    "gopher@example.com",
			FullName: "Go Pher",
			Password: "secret",
			Avatar:   testUpload(),
		})
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
	})

	t.Run("duplicate lost race at insert", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByLogin", ctx, "gopher", "gopher@example.com").
			Return(model.User{}, model.ErrNotFound).Once()
		m.storage.On("Upload", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("https://cdn.example.com/accounts-media/avatars/abc", nil).Once()
		m.userStore.On("Create", ctx, mock.Anything).
			Return(model.User{}, model.ErrConflict).Once()

		_, err := auth.Register(ctx, model.RegisterParams{
			Username: "gopher",
			Email:    "gopher@example.com",
			FullName: "Go Pher",
			Password: "secret",
			Avatar:   testUpload(),
		})
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
	})

	t.Run("avatar upload failure aborts", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByLogin", ctx, "gopher", "gopher@example.com").
			Return(model.User{}, model.ErrNotFound).Once()
		m.storage.On("Upload", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("storage down")).Once()

		_, err := auth.Register(ctx, model.RegisterParams{
			Username: "gopher",
			Email:    "gopher@example.com",
			FullName: "Go Pher",
			Password: "secret",
			Avatar:   testUpload(),
		})
		assert.Equal(t, http.StatusBadGateway, statusOf(t, err))
	})

	t.Run("cover upload failure is tolerated", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByLogin", ctx, "gopher", "gopher@example.com").
			Return(model.User{}, model.ErrNotFound).Once()
		m.storage.On("Upload", ctx,
			mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, "avatars/") }),
			mock.Anything, mock.Anything, mock.Anything).
			Return("https://cdn.example.com/accounts-media/avatars/abc", nil).Once()
		m.storage.On("Upload", ctx,
			mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, "covers/") }),
			mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("storage down")).Once()
		m.userStore.On("Create", ctx, mock.MatchedBy(func(u model.User) bool {
			return u.CoverImageURL == ""
		})).Return(model.User{ID: uuid.New(), Username: "gopher"}, nil).Once()

		created, err := auth.Register(ctx, model.RegisterParams{
			Username: "gopher",
			Email:    "gopher@example.com",
			FullName: "Go Pher",
			Password: "secret",
			Avatar:   testUpload(),
			Cover:    testUpload(),
		})
		require.NoError(t, err)
		assert.Empty(t, created.CoverImageURL)
	})
}

func TestAuth_Login(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByLogin", ctx, "gopher", "").
			Return(model.User{ID: userID, Username: "gopher", PasswordHash: hashForTest(t, "secret")}, nil).Once()
		m.tokenManager.On("GenerateAccessToken", userID).Return("access-token", nil).Once()
		m.tokenManager.On("GenerateRefreshToken", userID).Return("refresh-token", nil).Once()
		m.userStore.On("SetRefreshToken", ctx, userID, "refresh-token").Return(nil).Once()

		user, pair, err := auth.Login(ctx, model.LoginParams{Username: "gopher", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, "gopher", user.Username)
		assert.Empty(t, user.PasswordHash)
		assert.Equal(t, "access-token", pair.AccessToken)
		assert.Equal(t, "refresh-token", pair.RefreshToken)
	})

	t.Run("by email", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByLogin", ctx, "", "gopher@example.com").
			Return(model.User{ID: userID, PasswordHash: hashForTest(t, "secret")}, nil).Once()
		m.tokenManager.On("GenerateAccessToken", userID).Return("access-token", nil).Once()
		m.tokenManager.On("GenerateRefreshToken", userID).Return("refresh-token", nil).Once()
		m.userStore.On("SetRefreshToken", ctx, userID, "refresh-token").Return(nil).Once()

		_, _, err := auth.Login(ctx, model.LoginParams{Email: "gopher@example.com", Password: "secret"})
		require.NoError(t, err)
	})

	t.Run("no identifier", func(t *testing.T) {
		auth, _ := newTestAuth(t)

		_, _, err := auth.Login(ctx, model.LoginParams{Password: "secret"})
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})

	t.Run("wrong password", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByLogin", ctx, "gopher", "").
			Return(model.User{ID: userID, PasswordHash: hashForTest(t, "secret")}, nil).Once()

		_, _, err := auth.Login(ctx, model.LoginParams{Username: "gopher", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
		assert.Equal(t, "unauthorized request", apierr.FromError(err).Message)
	})

	t.Run("unknown user looks identical to wrong password", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByLogin", ctx, "nobody", "").
			Return(model.User{}, model.ErrNotFound).Once()

		_, _, err := auth.Login(ctx, model.LoginParams{Username: "nobody", Password: "secret"})
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
		assert.Equal(t, "unauthorized request", apierr.FromError(err).Message)
	})
}

func TestAuth_RefreshSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("rotates the stored token", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.tokenManager.On("ParseRefreshToken", "old-refresh").Return(userID, nil).Once()
		m.userStore.On("GetByID", ctx, userID).
			Return(model.User{ID: userID, RefreshToken: "old-refresh"}, nil).Once()
		m.tokenManager.On("GenerateAccessToken", userID).Return("new-access", nil).Once()
		m.tokenManager.On("GenerateRefreshToken", userID).Return("new-refresh", nil).Once()
		m.userStore.On("RotateRefreshToken", ctx, userID, "old-refresh", "new-refresh").
			Return(nil).Once()

		pair, err := auth.RefreshSession(ctx, "old-refresh")
		require.NoError(t, err)
		assert.Equal(t, "new-access", pair.AccessToken)
		assert.Equal(t, "new-refresh", pair.RefreshToken)
	})

	t.Run("missing token", func(t *testing.T) {
		auth, _ := newTestAuth(t)

		_, err := auth.RefreshSession(ctx, "")
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("invalid token", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.tokenManager.On("ParseRefreshToken", "garbage").
			Return(uuid.Nil, model.ErrTokenInvalid).Once()

		_, err := auth.RefreshSession(ctx, "garbage")
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("rotated-out token is rejected", func(t *testing.T) {
		auth, m := newTestAuth(t)

		// The token still verifies, but the slot has moved on.
		m.tokenManager.On("ParseRefreshToken", "old-refresh").Return(userID, nil).Once()
		m.userStore.On("GetByID", ctx, userID).
			Return(model.User{ID: userID, RefreshToken: "newer-refresh"}, nil).Once()

		_, err := auth.RefreshSession(ctx, "old-refresh")
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
		assert.Equal(t, "unauthorized request", apierr.FromError(err).Message)
	})

	t.Run("lost compare-and-set race", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.tokenManager.On("ParseRefreshToken", "old-refresh").Return(userID, nil).Once()
		m.userStore.On("GetByID", ctx, userID).
			Return(model.User{ID: userID, RefreshToken: "old-refresh"}, nil).Once()
		m.tokenManager.On("GenerateAccessToken", userID).Return("new-access", nil).Once()
		m.tokenManager.On("GenerateRefreshToken", userID).Return("new-refresh", nil).Once()
		m.userStore.On("RotateRefreshToken", ctx, userID, "old-refresh", "new-refresh").
			Return(model.ErrTokenMismatch).Once()

		_, err := auth.RefreshSession(ctx, "old-refresh")
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("vanished account", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.tokenManager.On("ParseRefreshToken", "old-refresh").Return(userID, nil).Once()
		m.userStore.On("GetByID", ctx, userID).Return(model.User{}, model.ErrNotFound).Once()

		_, err := auth.RefreshSession(ctx, "old-refresh")
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})
}

func TestAuth_Logout(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	auth, m := newTestAuth(t)

	m.userStore.On("ClearRefreshToken", ctx, userID).Return(nil).Twice()

	require.NoError(t, auth.Logout(ctx, userID))
	// A second logout finds an empty slot and still succeeds.
	require.NoError(t, auth.Logout(ctx, userID))
}

func TestAuth_ResolveSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("valid token", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.tokenManager.On("ParseAccessToken", "access-token").Return(userID, nil).Once()
		m.userStore.On("GetByID", ctx, userID).
			Return(model.User{ID: userID, Username: "gopher", PasswordHash: "hash", RefreshToken: "rt"}, nil).Once()

		user, err := auth.ResolveSession(ctx, "access-token")
		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		assert.Empty(t, user.PasswordHash)
		assert.Empty(t, user.RefreshToken)
	})

	t.Run("rejections are uniform", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.tokenManager.On("ParseAccessToken", "garbage").
			Return(uuid.Nil, model.ErrTokenInvalid).Once()
		m.tokenManager.On("ParseAccessToken", "orphan").Return(userID, nil).Once()
		m.userStore.On("GetByID", ctx, userID).Return(model.User{}, model.ErrNotFound).Once()

		for _, token := range []string{"", "garbage", "orphan"} {
			_, err := auth.ResolveSession(ctx, token)
			assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
			assert.Equal(t, "unauthorized request", apierr.FromError(err).Message)
		}
	})
}

func TestAuth_ChangePassword(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("success keeps the session", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByID", ctx, userID).
			Return(model.User{ID: userID, PasswordHash: hashForTest(t, "old-pass"), RefreshToken: "rt"}, nil).Once()
		m.userStore.On("UpdatePassword", ctx, userID, mock.MatchedBy(func(hash string) bool {
			return hash != "new-pass" &&
				bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-pass")) == nil
		})).Return(nil).Once()

		// No ClearRefreshToken and no token calls: the session survives.
		require.NoError(t, auth.ChangePassword(ctx, userID, "old-pass", "new-pass"))
	})

	t.Run("wrong old password", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByID", ctx, userID).
			Return(model.User{ID: userID, PasswordHash: hashForTest(t, "old-pass")}, nil).Once()

		err := auth.ChangePassword(ctx, userID, "wrong", "new-pass")
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("empty new password", func(t *testing.T) {
		auth, _ := newTestAuth(t)

		err := auth.ChangePassword(ctx, userID, "old-pass", "   ")
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})
}

func TestAuth_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("UpdateProfile", ctx, userID, "New Name", "new@example.com").
			Return(model.User{ID: userID, FullName: "New Name", Email: "new@example.com"}, nil).Once()

		user, err := auth.UpdateProfile(ctx, userID, " New Name ", "new@example.com")
		require.NoError(t, err)
		assert.Equal(t, "New Name", user.FullName)
	})

	t.Run("email taken", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("UpdateProfile", ctx, userID, "New Name", "taken@example.com").
			Return(model.User{}, model.ErrConflict).Once()

		_, err := auth.UpdateProfile(ctx, userID, "New Name", "taken@example.com")
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
	})

	t.Run("missing fields", func(t *testing.T) {
		auth, _ := newTestAuth(t)

		_, err := auth.UpdateProfile(ctx, userID, "", "new@example.com")
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})
}

func TestAuth_UpdateAvatar(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("replaces the old object", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByID", ctx, userID).
			Return(model.User{ID: userID, AvatarURL: "https://cdn.example.com/accounts-media/avatars/old-key"}, nil).Once()
		m.storage.On("Delete", ctx, "avatars/old-key").Return(nil).Once()
		m.storage.On("Upload", ctx,
			mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, "avatars/") }),
			mock.Anything, mock.Anything, mock.Anything).
			Return("https://cdn.example.com/accounts-media/avatars/new-key", nil).Once()
		m.userStore.On("UpdateAvatarURL", ctx, userID, "https://cdn.example.com/accounts-media/avatars/new-key").
			Return(model.User{ID: userID, AvatarURL: "https://cdn.example.com/accounts-media/avatars/new-key"}, nil).Once()

		user, err := auth.UpdateAvatar(ctx, userID, testUpload())
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/accounts-media/avatars/new-key", user.AvatarURL)
	})

	t.Run("delete failure aborts before upload", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByID", ctx, userID).
			Return(model.User{ID: userID, AvatarURL: "https://cdn.example.com/accounts-media/avatars/old-key"}, nil).Once()
		m.storage.On("Delete", ctx, "avatars/old-key").
			Return(errors.New("storage down")).Once()

		_, err := auth.UpdateAvatar(ctx, userID, testUpload())
		assert.Equal(t, http.StatusBadGateway, statusOf(t, err))
	})

	t.Run("missing file", func(t *testing.T) {
		auth, _ := newTestAuth(t)

		_, err := auth.UpdateAvatar(ctx, userID, nil)
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})
}

func TestAuth_UpdateCoverImage(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("replaces the old object", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByID", ctx, userID).
			Return(model.User{ID: userID, CoverImageURL: "https://cdn.example.com/accounts-media/covers/old-key"}, nil).Once()
		m.storage.On("Delete", ctx, "covers/old-key").Return(nil).Once()
		m.storage.On("Upload", ctx,
			mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, "covers/") }),
			mock.Anything, mock.Anything, mock.Anything).
			Return("https://cdn.example.com/accounts-media/covers/new-key", nil).Once()
		m.userStore.On("UpdateCoverImageURL", ctx, userID, "https://cdn.example.com/accounts-media/covers/new-key").
			Return(model.User{ID: userID, CoverImageURL: "https://cdn.example.com/accounts-media/covers/new-key"}, nil).Once()

		user, err := auth.UpdateCoverImage(ctx, userID, testUpload())
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/accounts-media/covers/new-key", user.CoverImageURL)
	})

	t.Run("requires an existing cover", func(t *testing.T) {
		auth, m := newTestAuth(t)

		m.userStore.On("GetByID", ctx, userID).
			Return(model.User{ID: userID}, nil).Once()

		_, err := auth.UpdateCoverImage(ctx, userID, testUpload())
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})
}
