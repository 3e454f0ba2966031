package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brewops/brewops-server/internal/logger"
	"github.com/brewops/brewops-server/internal/mocks"
	"github.com/brewops/brewops-server/internal/model"
	"github.com/brewops/brewops-server/internal/testutil"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func strPtr(s string) *string { return &s }

// memUserStore applies updates with the same column rules as the postgres repository.
type memUserStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]model.User
	updates int
}

func newMemUserStore(users ...model.User) *memUserStore {
	s := &memUserStore{users: make(map[uuid.UUID]model.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email != nil && strings.EqualFold(*u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *memUserStore) Update(_ context.Context, id uuid.UUID, update model.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	s.updates++
	u.Name = update.Name
	u.Phone = update.Phone
	if update.Email != nil {
		u.Email = update.Email
	}
	if update.Avatar != nil {
		u.Avatar = update.Avatar
	}
	u.UpdatedAt = update.UpdatedAt
	s.users[id] = u
	return nil
}

func (s *memUserStore) SetAvatar(_ context.Context, id uuid.UUID, avatar string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.Avatar = &avatar
	u.UpdatedAt = updatedAt
	s.users[id] = u
	return nil
}

func (s *memUserStore) IncrementTokenVersion(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, model.ErrNotFound
	}
	u.TokenVersion++
	s.users[id] = u
	return u.TokenVersion, nil
}

func (s *memUserStore) Ping(context.Context) error { return nil }

func alice() model.User {
	return model.User{
		ID:           uuid.New(),
		Name:         "Alice",
		Email:        strPtr("a@x.com"),
		Phone:        strPtr("555"),
		PasswordHash: []byte("$2a$10$secret"),
		TokenVersion: 3,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestProfile(store model.UserStore, storage model.Storage) *Profile {
	s := NewProfile(store, storage, 1024, testutil.MakeNoopLogger())
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestProfile_GetProfile(t *testing.T) {
	ctx := context.Background()
	u := alice()

	t.Run("redacted view", func(t *testing.T) {
		s := newTestProfile(newMemUserStore(u), nil)

		p, err := s.GetProfile(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.ID, p.ID)
		assert.Equal(t, "Alice", p.Name)
		assert.Equal(t, "a@x.com", *p.Email)

		fields := p.Fields()
		assert.NotContains(t, fields, "password_hash")
		assert.NotContains(t, fields, "token_version")
	})

	t.Run("not found", func(t *testing.T) {
		s := newTestProfile(newMemUserStore(), nil)

		_, err := s.GetProfile(ctx, uuid.New())
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("store unavailable", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		store.On("GetByID", mock.Anything, u.ID).Return(model.User{}, model.ErrStoreUnavailable)

		_, err := newTestProfile(store, nil).GetProfile(ctx, u.ID)
		require.ErrorIs(t, err, model.ErrStoreUnavailable)
		assert.NotErrorIs(t, err, model.ErrNotFound)
	})
}

func TestProfile_UpdateProfile_NameRequired(t *testing.T) {
	tests := []struct {
		name string
		req  model.ProfileUpdate
	}{
		{name: "absent", req: model.ProfileUpdate{Email: strPtr("b@x.com")}},
		{name: "empty", req: model.ProfileUpdate{Name: strPtr("")}},
		{name: "whitespace", req: model.ProfileUpdate{Name: strPtr(" \t\n ")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No expectations: any store call fails the test.
			store := mocks.NewUserStore(t)

			_, err := newTestProfile(store, nil).UpdateProfile(context.Background(), uuid.New(), tt.req)

			var invalid *model.InvalidArgumentError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "Name is required", invalid.Message)
		})
	}
}

func TestProfile_UpdateProfile_InvalidEmail(t *testing.T) {
	store := mocks.NewUserStore(t)

	_, err := newTestProfile(store, nil).UpdateProfile(context.Background(), uuid.New(), model.ProfileUpdate{
		Name:  strPtr("Alice"),
		Email: strPtr("not-an-email"),
	})

	var invalid *model.InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "Invalid email format", invalid.Message)
}

func TestProfile_UpdateProfile_Merge(t *testing.T) {
	u := alice()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  model.ProfileUpdate
		want model.UserUpdate
	}{
		{
			name: "name trimmed and absent phone cleared",
			req:  model.ProfileUpdate{Name: strPtr("  Alice B  ")},
			want: model.UserUpdate{Name: "Alice B", UpdatedAt: now},
		},
		{
			name: "blank phone cleared",
			req:  model.ProfileUpdate{Name: strPtr("Alice"), Phone: strPtr("   ")},
			want: model.UserUpdate{Name: "Alice", UpdatedAt: now},
		},
		{
			name: "phone trimmed",
			req:  model.ProfileUpdate{Name: strPtr("Alice"), Phone: strPtr(" 777 ")},
			want: model.UserUpdate{Name: "Alice", Phone: strPtr("777"), UpdatedAt: now},
		},
		{
			name: "empty email and avatar left untouched",
			req:  model.ProfileUpdate{Name: strPtr("Alice"), Email: strPtr(""), Avatar: strPtr("")},
			want: model.UserUpdate{Name: "Alice", UpdatedAt: now},
		},
		{
			name: "email and avatar set",
			req:  model.ProfileUpdate{Name: strPtr("Alice"), Email: strPtr("new@x.com"), Avatar: strPtr("https://cdn/a.png")},
			want: model.UserUpdate{Name: "Alice", Email: strPtr("new@x.com"), Avatar: strPtr("https://cdn/a.png"), UpdatedAt: now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewUserStore(t)
			store.On("Update", mock.Anything, u.ID, tt.want).Return(nil).Once()
			store.On("GetByID", mock.Anything, u.ID).Return(u, nil).Once()

			_, err := newTestProfile(store, nil).UpdateProfile(context.Background(), u.ID, tt.req)
			require.NoError(t, err)
		})
	}
}

func TestProfile_UpdateProfile_NameOnlyKeepsSecrets(t *testing.T) {
	u := alice()
	store := newMemUserStore(u)
	s := newTestProfile(store, nil)

	p, err := s.UpdateProfile(context.Background(), u.ID, model.ProfileUpdate{Name: strPtr("Alice B")})
	require.NoError(t, err)

	assert.Equal(t, "Alice B", p.Name)
	require.NotNil(t, p.Email)
	assert.Equal(t, "a@x.com", *p.Email)
	assert.Nil(t, p.Phone)
	assert.Nil(t, p.Avatar)
	assert.Equal(t, s.now(), p.UpdatedAt)

	stored, _ := store.GetByID(context.Background(), u.ID)
	assert.Equal(t, u.PasswordHash, stored.PasswordHash)
	assert.Equal(t, u.TokenVersion, stored.TokenVersion)
}

func TestProfile_UpdateProfile_UnknownUser(t *testing.T) {
	s := newTestProfile(newMemUserStore(), nil)

	_, err := s.UpdateProfile(context.Background(), uuid.New(), model.ProfileUpdate{Name: strPtr("Ghost")})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestProfile_UpdateProfile_DisappearsBeforeReload(t *testing.T) {
	u := alice()
	store := mocks.NewUserStore(t)
	store.On("Update", mock.Anything, u.ID, mock.Anything).Return(nil)
	store.On("GetByID", mock.Anything, u.ID).Return(model.User{}, model.ErrNotFound)

	_, err := newTestProfile(store, nil).UpdateProfile(context.Background(), u.ID, model.ProfileUpdate{Name: strPtr("A")})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestProfile_UpdateProfile_StoreErrors(t *testing.T) {
	u := alice()

	t.Run("unavailable", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		store.On("Update", mock.Anything, u.ID, mock.Anything).Return(model.ErrStoreUnavailable)

		_, err := newTestProfile(store, nil).UpdateProfile(context.Background(), u.ID, model.ProfileUpdate{Name: strPtr("A")})
		assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	})

	t.Run("constraint violation", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		store.On("Update", mock.Anything, u.ID, mock.Anything).Return(model.NewInvalidArgument("Email is already in use"))

		_, err := newTestProfile(store, nil).UpdateProfile(context.Background(), u.ID, model.ProfileUpdate{Name: strPtr("A"), Email: strPtr("b@x.com")})

		var invalid *model.InvalidArgumentError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "Email is already in use", invalid.Message)
	})
}

func TestProfile_UpdateProfile_Idempotent(t *testing.T) {
	u := alice()
	store := newMemUserStore(u)
	s := newTestProfile(store, nil)
	req := model.ProfileUpdate{Name: strPtr("Alice B"), Phone: strPtr("777"), Email: strPtr("b@x.com")}

	first, err := s.UpdateProfile(context.Background(), u.ID, req)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC) }
	second, err := s.UpdateProfile(context.Background(), u.ID, req)
	require.NoError(t, err)

	assert.NotEqual(t, first.UpdatedAt, second.UpdatedAt)
	first.UpdatedAt, second.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, first, second)
	assert.Equal(t, 2, store.updates)
}

func TestProfile_UploadAvatar(t *testing.T) {
	ctx := context.Background()

	t.Run("stores image and replaces previous managed avatar", func(t *testing.T) {
		u := alice()
		oldKey := "avatars/" + u.ID.String() + "/old.png"
		u.Avatar = strPtr(oldKey)
		store := newMemUserStore(u)

		var uploadedKey string
		var uploaded []byte
		storage := mocks.NewStorage(t)
		storage.On("Upload", mock.Anything, mock.AnythingOfType("string"), mock.Anything, int64(len(pngHeader)), "image/png").
			Run(func(args mock.Arguments) {
				uploadedKey = args.String(1)
				uploaded, _ = io.ReadAll(args.Get(2).(io.Reader))
			}).
			Return(nil)
		storage.On("Delete", mock.Anything, oldKey).Return(nil)

		p, err := newTestProfile(store, storage).UploadAvatar(ctx, u.ID, model.AvatarUpload{
			Filename: "me.png",
			Size:     int64(len(pngHeader)),
			Content:  bytes.NewReader(pngHeader),
		})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(uploadedKey, "avatars/"+u.ID.String()+"/"))
		assert.True(t, strings.HasSuffix(uploadedKey, ".png"))
		assert.Equal(t, pngHeader, uploaded)
		require.NotNil(t, p.Avatar)
		assert.Equal(t, uploadedKey, *p.Avatar)
	})

	t.Run("external avatar is not deleted", func(t *testing.T) {
		u := alice()
		u.Avatar = strPtr("https://cdn.example/a.png")
		storage := mocks.NewStorage(t)
		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "image/gif").Return(nil)

		gif := []byte("GIF89a\x01\x00\x01\x00")
		_, err := newTestProfile(newMemUserStore(u), storage).UploadAvatar(ctx, u.ID, model.AvatarUpload{
			Size:    int64(len(gif)),
			Content: bytes.NewReader(gif),
		})
		require.NoError(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := newTestProfile(mocks.NewUserStore(t), mocks.NewStorage(t)).UploadAvatar(ctx, uuid.New(), model.AvatarUpload{
			Size:    2048,
			Content: bytes.NewReader(make([]byte, 2048)),
		})
		assert.ErrorIs(t, err, model.ErrAvatarTooLarge)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := newTestProfile(mocks.NewUserStore(t), mocks.NewStorage(t)).UploadAvatar(ctx, uuid.New(), model.AvatarUpload{
			Content: bytes.NewReader(nil),
		})
		var invalid *model.InvalidArgumentError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("not an image", func(t *testing.T) {
		body := []byte("plain text, definitely not an image")
		_, err := newTestProfile(mocks.NewUserStore(t), mocks.NewStorage(t)).UploadAvatar(ctx, uuid.New(), model.AvatarUpload{
			Size:    int64(len(body)),
			Content: bytes.NewReader(body),
		})
		var invalid *model.InvalidArgumentError
		require.ErrorAs(t, err, &invalid)
		assert.Contains(t, invalid.Message, "PNG")
	})

	t.Run("user missing", func(t *testing.T) {
		_, err := newTestProfile(newMemUserStore(), mocks.NewStorage(t)).UploadAvatar(ctx, uuid.New(), model.AvatarUpload{
			Size:    int64(len(pngHeader)),
			Content: bytes.NewReader(pngHeader),
		})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("user removed after upload cleans object", func(t *testing.T) {
		u := alice()
		store := mocks.NewUserStore(t)
		store.On("GetByID", mock.Anything, u.ID).Return(u, nil)
		store.On("SetAvatar", mock.Anything, u.ID, mock.Anything, mock.Anything).Return(model.ErrNotFound)

		var uploadedKey string
		storage := mocks.NewStorage(t)
		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "image/png").
			Run(func(args mock.Arguments) { uploadedKey = args.String(1) }).
			Return(nil)
		storage.On("Delete", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { assert.Equal(t, uploadedKey, args.String(1)) }).
			Return(errors.New("delete failed"))

		_, err := newTestProfile(store, storage).UploadAvatar(ctx, u.ID, model.AvatarUpload{
			Size:    int64(len(pngHeader)),
			Content: bytes.NewReader(pngHeader),
		})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("upload failure", func(t *testing.T) {
		u := alice()
		storage := mocks.NewStorage(t)
		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket gone"))

		_, err := newTestProfile(newMemUserStore(u), storage).UploadAvatar(ctx, u.ID, model.AvatarUpload{
			Size:    int64(len(pngHeader)),
			Content: bytes.NewReader(pngHeader),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upload avatar")
	})
}

func TestProfile_GetAvatar(t *testing.T) {
	ctx := context.Background()

	t.Run("managed avatar", func(t *testing.T) {
		u := alice()
		key := "avatars/" + u.ID.String() + "/x.webp"
		u.Avatar = strPtr(key)
		storage := mocks.NewStorage(t)
		storage.On("Download", mock.Anything, key).Return(io.NopCloser(strings.NewReader("img")), nil)

		avatar, err := newTestProfile(newMemUserStore(u), storage).GetAvatar(ctx, u.ID)
		require.NoError(t, err)
		defer avatar.Content.Close()
		assert.Equal(t, "image/webp", avatar.ContentType)
	})

	t.Run("no avatar", func(t *testing.T) {
		_, err := newTestProfile(newMemUserStore(alice()), mocks.NewStorage(t)).GetAvatar(ctx, uuid.New())
		assert.ErrorIs(t, err, model.ErrNotFound)

		u := alice()
		_, err = newTestProfile(newMemUserStore(u), mocks.NewStorage(t)).GetAvatar(ctx, u.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("external avatar", func(t *testing.T) {
		u := alice()
		u.Avatar = strPtr("https://cdn.example/a.png")
		_, err := newTestProfile(newMemUserStore(u), mocks.NewStorage(t)).GetAvatar(ctx, u.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("object missing", func(t *testing.T) {
		u := alice()
		key := "avatars/" + u.ID.String() + "/x.png"
		u.Avatar = strPtr(key)
		storage := mocks.NewStorage(t)
		storage.On("Download", mock.Anything, key).Return(nil, model.ErrNotFound)

		_, err := newTestProfile(newMemUserStore(u), storage).GetAvatar(ctx, u.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestProfile_UploadAvatar_LogsClientFilename(t *testing.T) {
	u := alice()
	storage := mocks.NewStorage(t)
	storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, int64(len(pngHeader)), "image/png").Return(nil)

	var buf bytes.Buffer
	s := NewProfile(newMemUserStore(u), storage, 1024, logger.NewWithWriter(&buf, 0))

	_, err := s.UploadAvatar(context.Background(), u.ID, model.AvatarUpload{
		Filename: "me.png",
		Size:     int64(len(pngHeader)),
		Content:  bytes.NewReader(pngHeader),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "avatar updated")
	assert.Contains(t, out, "filename=me.png")
	assert.Contains(t, out, "user_id="+u.ID.String())
}
