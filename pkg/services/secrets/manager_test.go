package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/de-tools/cloud-audit/pkg/services/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const key = `{"type":"service_account","project_id":"proj-a","private_key":"pk","client_email":"sa@proj-a.iam.gserviceaccount.com"}`

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateSecret(ctx context.Context, parent, id string) (string, error) {
	args := m.Called(ctx, parent, id)
	return args.String(0), args.Error(1)
}

func (m *mockStore) AddVersion(ctx context.Context, secret string, payload []byte) (string, error) {
	args := m.Called(ctx, secret, payload)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Access(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockStore) DeleteSecret(ctx context.Context, secret string) error {
	args := m.Called(ctx, secret)
	return args.Error(0)
}

func prefixed(prefix string) interface{} {
	return mock.MatchedBy(func(id string) bool { return strings.HasPrefix(id, prefix+"-") })
}

func TestStore_CreatesSecretAndVersion(t *testing.T) {
	store := new(mockStore)
	store.On("CreateSecret", mock.Anything, "projects/vault", prefixed("creds")).
		Return("projects/vault/secrets/creds-1", nil)
	store.On("AddVersion", mock.Anything, "projects/vault/secrets/creds-1", []byte(key)).
		Return("projects/vault/secrets/creds-1/versions/1", nil)
	m := NewManager(store, "vault", "creds")

	locator, err := m.Store(context.Background(), []byte(key))

	require.NoError(t, err)
	assert.Equal(t, "projects/vault/secrets/creds-1/versions/1", locator)
	store.AssertExpectations(t)
}

func TestStore_UniqueIDs(t *testing.T) {
	var ids []string
	store := new(mockStore)
	store.On("CreateSecret", mock.Anything, "projects/vault", mock.Anything).
		Run(func(args mock.Arguments) { ids = append(ids, args.String(2)) }).
		Return("s", nil)
	store.On("AddVersion", mock.Anything, "s", mock.Anything).Return("s/versions/1", nil)
	m := NewManager(store, "vault", "")

	for i := 0; i < 3; i++ {
		_, err := m.Store(context.Background(), []byte(key))
		require.NoError(t, err)
	}

	require.Len(t, ids, 3)
	assert.NotEqual(t, ids[0], ids[1])
	assert.NotEqual(t, ids[1], ids[2])
	assert.True(t, strings.HasPrefix(ids[0], DefaultPrefix+"-"))
}

func TestStore_MalformedMaterialWritesNothing(t *testing.T) {
	for _, payload := range []string{"not json", `{"client_email":"x@p.iam.gserviceaccount.com"}`, ""} {
		t.Run(fmt.Sprintf("%q", payload), func(t *testing.T) {
			store := new(mockStore)
			m := NewManager(store, "vault", "")

			_, err := m.Store(context.Background(), []byte(payload))

			assert.ErrorIs(t, err, ErrMalformedMaterial)
			assert.ErrorIs(t, err, credentials.ErrMalformedMaterial)
			store.AssertNotCalled(t, "CreateSecret", mock.Anything, mock.Anything, mock.Anything)
			store.AssertNotCalled(t, "AddVersion", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestStore_VersionFailureRemovesSecret(t *testing.T) {
	cause := errors.New("quota exceeded")
	store := new(mockStore)
	store.On("CreateSecret", mock.Anything, "projects/vault", mock.Anything).Return("projects/vault/secrets/x", nil)
	store.On("AddVersion", mock.Anything, "projects/vault/secrets/x", mock.Anything).Return("", cause)
	store.On("DeleteSecret", mock.Anything, "projects/vault/secrets/x").Return(nil)
	m := NewManager(store, "vault", "")

	locator, err := m.Store(context.Background(), []byte(key))

	assert.Empty(t, locator)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	store.AssertCalled(t, "DeleteSecret", mock.Anything, "projects/vault/secrets/x")
}

func TestStore_CancelledWriteStillRemovesSecret(t *testing.T) {
	// Given a caller whose context is cancelled while the version is written
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var (
		cleanupCtx context.Context
		cleanupErr error
	)
	store := new(mockStore)
	store.On("CreateSecret", mock.Anything, "projects/vault", mock.Anything).Return("projects/vault/secrets/x", nil)
	store.On("AddVersion", mock.Anything, "projects/vault/secrets/x", mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled)
	store.On("DeleteSecret", mock.Anything, "projects/vault/secrets/x").
		Run(func(args mock.Arguments) {
			cleanupCtx = args.Get(0).(context.Context)
			cleanupErr = cleanupCtx.Err()
		}).
		Return(nil)
	m := NewManager(store, "vault", "")

	// When
	_, err := m.Store(ctx, []byte(key))

	// Then the container is removed under a live, bounded context
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, cleanupCtx)
	assert.NoError(t, cleanupErr)
	_, hasDeadline := cleanupCtx.Deadline()
	assert.True(t, hasDeadline)
	store.AssertCalled(t, "DeleteSecret", mock.Anything, "projects/vault/secrets/x")
}

func TestStore_CreateDenied(t *testing.T) {
	store := new(mockStore)
	store.On("CreateSecret", mock.Anything, mock.Anything, mock.Anything).Return("", ErrStorePermissionDenied)
	m := NewManager(store, "vault", "")

	_, err := m.Store(context.Background(), []byte(key))

	assert.ErrorIs(t, err, ErrAccessDenied)
	store.AssertNotCalled(t, "AddVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetrieve(t *testing.T) {
	tests := []struct {
		name      string
		locator   string
		accessed  string
		payload   []byte
		accessErr error
		wantErr   error
	}{
		{
			name:     "explicit version",
			locator:  "projects/vault/secrets/x/versions/3",
			accessed: "projects/vault/secrets/x/versions/3",
			payload:  []byte(key),
		},
		{
			name:     "bare secret resolves latest",
			locator:  "projects/vault/secrets/x",
			accessed: "projects/vault/secrets/x/versions/latest",
			payload:  []byte(key),
		},
		{
			name:      "not found",
			locator:   "projects/vault/secrets/missing",
			accessed:  "projects/vault/secrets/missing/versions/latest",
			accessErr: fmt.Errorf("rpc: %w", ErrStoreNotFound),
			wantErr:   ErrNotFound,
		},
		{
			name:      "access denied",
			locator:   "projects/vault/secrets/x/versions/1",
			accessed:  "projects/vault/secrets/x/versions/1",
			accessErr: ErrStorePermissionDenied,
			wantErr:   ErrAccessDenied,
		},
		{
			name:      "transient",
			locator:   "projects/vault/secrets/x/versions/1",
			accessed:  "projects/vault/secrets/x/versions/1",
			accessErr: errors.New("connection reset"),
			wantErr:   ErrUnavailable,
		},
		{
			name:     "payload is not credential data",
			locator:  "projects/vault/secrets/x/versions/1",
			accessed: "projects/vault/secrets/x/versions/1",
			payload:  []byte("hunter2"),
			wantErr:  ErrMalformedMaterial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStore)
			if tt.accessErr != nil {
				store.On("Access", mock.Anything, tt.accessed).Return(nil, tt.accessErr)
			} else {
				store.On("Access", mock.Anything, tt.accessed).Return(tt.payload, nil)
			}
			m := NewManager(store, "vault", "")

			got, err := m.Retrieve(context.Background(), tt.locator)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.payload, got)
			store.AssertExpectations(t)
		})
	}
}

func TestRetrieve_EmptyLocator(t *testing.T) {
	m := NewManager(new(mockStore), "vault", "")

	_, err := m.Retrieve(context.Background(), "  ")

	assert.ErrorIs(t, err, ErrNotFound)
}
