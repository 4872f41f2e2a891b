package client

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/tests/testutil"
)

type MockDocumentStorage struct {
	mock.Mock
}

func (m *MockDocumentStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockDocumentStorage) PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockDocumentStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockResetNotifier struct {
	mock.Mock
}

func (m *MockResetNotifier) SendPasswordReset(ctx context.Context, c *client.Client, link string) error {
	args := m.Called(ctx, c, link)
	return args.Error(0)
}

type MockPrincipalRevoker struct {
	mock.Mock
}

func (m *MockPrincipalRevoker) InvalidatePrincipal(ctx context.Context, principalID string, ttl time.Duration) error {
	args := m.Called(ctx, principalID, ttl)
	return args.Error(0)
}

type clientFixture struct {
	clients  *testutil.MockClientRepository
	storage  *MockDocumentStorage
	activity *testutil.MockActivityRepository
	notifier *MockResetNotifier
	revoker  *MockPrincipalRevoker
	service  *ClientService
}

func setupClientService(t *testing.T) *clientFixture {
	t.Helper()
	f := &clientFixture{
		clients:  new(testutil.MockClientRepository),
		storage:  new(MockDocumentStorage),
		activity: new(testutil.MockActivityRepository),
		notifier: new(MockResetNotifier),
		revoker:  new(MockPrincipalRevoker),
	}
	f.service = NewClientService(ClientServiceDeps{
		Clients:   f.clients,
		Storage:   f.storage,
		Activity:  f.activity,
		Notifier:  f.notifier,
		Revoker:   f.revoker,
		TokenTTL:  24 * time.Hour,
		PortalURL: "https://portal.test",
		Logger:    zap.NewNop(),
	})
	return f
}

// =============================================================================
// Documents
// =============================================================================

func TestClientService_UploadDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("stores document and replaces previous", func(t *testing.T) {
		f := setupClientService(t)
		cl := testutil.NewTestClient(t)
		oldKey := "documents/" + cl.ID.String() + "/id_document-1-abcdef.png"
		require.NoError(t, cl.AttachDocument(client.DocumentTypeID, oldKey))
		cl.SetDocumentsVerified(true)

		f.clients.On("FindByID", ctx, cl.ID).Return(cl, nil)
		f.storage.On("Upload", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "documents/"+cl.ID.String()+"/id_document-") && strings.HasSuffix(key, ".pdf")
		}), []byte("%PDF"), "application/pdf").Return(nil)
		f.clients.On("Save", ctx, cl).Return(nil)
		f.storage.On("Delete", ctx, oldKey).Return(nil)

		resp, err := f.service.UploadDocument(ctx, cl.ID, UploadDocumentRequest{
			Type:        client.DocumentTypeID,
			Filename:    "license.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF"),
		})

		require.NoError(t, err)
		assert.Equal(t, "id_document", resp.Type)
		assert.True(t, strings.HasPrefix(resp.Filename, "id_document-"))
		assert.False(t, cl.DocumentsVerified)
		f.storage.AssertExpectations(t)
	})

	tests := []struct {
		name string
		req  UploadDocumentRequest
		code string
	}{
		{"signature type rejected", UploadDocumentRequest{Type: client.DocumentTypeSignature, ContentType: "image/png", Data: []byte("x")}, "INVALID_DOCUMENT_TYPE"},
		{"empty file", UploadDocumentRequest{Type: client.DocumentTypeSSN, ContentType: "image/png"}, "INVALID_FILE"},
		{"unsupported content type", UploadDocumentRequest{Type: client.DocumentTypeSSN, ContentType: "text/html", Data: []byte("<p>")}, "INVALID_FILE_TYPE"},
		{"too large", UploadDocumentRequest{Type: client.DocumentTypeSSN, ContentType: "image/png", Data: make([]byte, MaxDocumentSize+1)}, "FILE_TOO_LARGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupClientService(t)

			_, err := f.service.UploadDocument(ctx, uuid.New(), tt.req)

			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
			f.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestClientService_DocumentURL(t *testing.T) {
	ctx := context.Background()
	cl := testutil.NewTestClient(t)
	key := "documents/" + cl.ID.String() + "/ssn_document-1700000000000-a1b2c3.jpg"
	require.NoError(t, cl.AttachDocument(client.DocumentTypeSSN, key))

	t.Run("owned document presigned for an hour", func(t *testing.T) {
		f := setupClientService(t)
		expires := time.Now().Add(time.Hour)
		f.clients.On("FindByID", ctx, cl.ID).Return(cl, nil)
		f.storage.On("PresignGet", ctx, key, time.Hour).Return("https://s3.test/signed", expires, nil)

		resp, err := f.service.DocumentURL(ctx, cl.ID, client.DocumentTypeSSN, "ssn_document-1700000000000-a1b2c3.jpg")

		require.NoError(t, err)
		assert.Equal(t, "https://s3.test/signed", resp.URL)
		assert.Equal(t, 3600, resp.ExpiresIn)
	})

	t.Run("unknown filename is not found", func(t *testing.T) {
		f := setupClientService(t)
		f.clients.On("FindByID", ctx, cl.ID).Return(cl, nil)

		_, err := f.service.DocumentURL(ctx, cl.ID, client.DocumentTypeSSN, "ssn_document-1-ffffff.jpg")

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("path traversal rejected", func(t *testing.T) {
		f := setupClientService(t)

		_, err := f.service.DocumentURL(ctx, cl.ID, client.DocumentTypeSSN, "../other/ssn_document-1.jpg")

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_FILENAME", domainErr.Code)
	})

	t.Run("signature type rejected", func(t *testing.T) {
		f := setupClientService(t)

		_, err := f.service.DocumentURL(ctx, cl.ID, client.DocumentTypeSignature, "signature-1.png")

		require.Error(t, err)
	})
}

func TestClientService_VerifyDocuments(t *testing.T) {
	ctx := context.Background()
	admin := analytics.Actor{Role: "admin"}

	t.Run("verified", func(t *testing.T) {
		f := setupClientService(t)
		cl := testutil.NewTestClient(t)
		require.NoError(t, cl.AttachDocument(client.DocumentTypeID, "documents/x/id_document-1-aaaaaa.png"))
		f.clients.On("FindByID", ctx, cl.ID).Return(cl, nil)
		f.clients.On("Save", ctx, cl).Return(nil)
		f.activity.On("Create", ctx, testutil.ActionIs(analytics.ActionDocumentsVerified)).Return(nil)

		resp, err := f.service.VerifyDocuments(ctx, cl.ID, true, admin)

		require.NoError(t, err)
		assert.True(t, resp.DocumentsVerified)
		f.activity.AssertExpectations(t)
	})

	t.Run("nothing to verify", func(t *testing.T) {
		f := setupClientService(t)
		cl := testutil.NewTestClient(t)
		f.clients.On("FindByID", ctx, cl.ID).Return(cl, nil)

		_, err := f.service.VerifyDocuments(ctx, cl.ID, true, admin)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NO_DOCUMENTS", domainErr.Code)
	})
}

// =============================================================================
// Password recovery
// =============================================================================

func TestClientService_ForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email is silent", func(t *testing.T) {
		f := setupClientService(t)
		f.clients.On("FindByEmail", ctx, "nobody@client.test").Return(nil, shared.ErrNotFound)

		err := f.service.ForgotPassword(ctx, " Nobody@Client.test ")

		require.NoError(t, err)
		f.notifier.AssertNotCalled(t, "SendPasswordReset", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("token issued and link sent", func(t *testing.T) {
		f := setupClientService(t)
		cl := testutil.NewTestClient(t)
		f.clients.On("FindByEmail", ctx, cl.Email).Return(cl, nil)
		f.clients.On("Save", ctx, cl).Return(nil)
		f.notifier.On("SendPasswordReset", ctx, cl, mock.MatchedBy(func(link string) bool {
			return strings.HasPrefix(link, "https://portal.test/reset-password?token=") && strings.HasSuffix(link, cl.ResetToken)
		})).Return(nil)

		err := f.service.ForgotPassword(ctx, cl.Email)

		require.NoError(t, err)
		assert.Len(t, cl.ResetToken, 64)
		require.NotNil(t, cl.ResetTokenExpires)
		assert.WithinDuration(t, time.Now().Add(time.Hour), *cl.ResetTokenExpires, time.Minute)
	})

	t.Run("notifier failure still succeeds", func(t *testing.T) {
		f := setupClientService(t)
		cl := testutil.NewTestClient(t)
		f.clients.On("FindByEmail", ctx, cl.Email).Return(cl, nil)
		f.clients.On("Save", ctx, cl).Return(nil)
		f.notifier.On("SendPasswordReset", ctx, cl, mock.Anything).Return(errors.New("smtp down"))

		assert.NoError(t, f.service.ForgotPassword(ctx, cl.Email))
	})

	t.Run("log fallback never writes the token", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		clients := new(testutil.MockClientRepository)
		service := NewClientService(ClientServiceDeps{
			Clients:   clients,
			PortalURL: "https://portal.test",
			Logger:    zap.New(core),
		})
		cl := testutil.NewTestClient(t)
		clients.On("FindByEmail", ctx, cl.Email).Return(cl, nil)
		clients.On("Save", ctx, cl).Return(nil)

		require.NoError(t, service.ForgotPassword(ctx, cl.Email))

		require.NotEmpty(t, cl.ResetToken)
		entries := logs.FilterMessage("Password reset requested but mail delivery is not configured").All()
		require.Len(t, entries, 1)
		for _, entry := range logs.All() {
			assert.NotContains(t, entry.Message, cl.ResetToken)
			for _, field := range entry.Context {
				assert.NotContains(t, field.String, cl.ResetToken, "field %s leaks the reset token", field.Key)
			}
		}
	})
}

func TestClientService_ResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		f := setupClientService(t)
		cl := testutil.NewTestClient(t)
		token, err := cl.IssueResetToken(time.Now())
		require.NoError(t, err)

		f.clients.On("FindByResetToken", ctx, token).Return(cl, nil)
		f.clients.On("Save", ctx, cl).Return(nil)
		f.revoker.On("InvalidatePrincipal", ctx, cl.ID.String(), 24*time.Hour).Return(nil)

		valid, err := f.service.ValidateResetToken(ctx, token)
		require.NoError(t, err)
		assert.True(t, valid)

		require.NoError(t, f.service.ResetPassword(ctx, token, "brand-new-pass"))
		assert.True(t, cl.VerifyPassword("brand-new-pass"))
		assert.Empty(t, cl.ResetToken)
		f.revoker.AssertExpectations(t)
	})

	t.Run("expired token", func(t *testing.T) {
		f := setupClientService(t)
		cl := testutil.NewTestClient(t)
		token, err := cl.IssueResetToken(time.Now().Add(-2 * time.Hour))
		require.NoError(t, err)
		f.clients.On("FindByResetToken", ctx, token).Return(cl, nil)

		valid, err := f.service.ValidateResetToken(ctx, token)
		require.NoError(t, err)
		assert.False(t, valid)

		err = f.service.ResetPassword(ctx, token, "brand-new-pass")
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_TOKEN", domainErr.Code)
		f.clients.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := setupClientService(t)
		f.clients.On("FindByResetToken", ctx, "nope").Return(nil, shared.ErrNotFound)

		err := f.service.ResetPassword(ctx, "nope", "brand-new-pass")

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_TOKEN", domainErr.Code)
	})

	t.Run("short password", func(t *testing.T) {
		f := setupClientService(t)
		cl := testutil.NewTestClient(t)
		token, err := cl.IssueResetToken(time.Now())
		require.NoError(t, err)
		f.clients.On("FindByResetToken", ctx, token).Return(cl, nil)

		err = f.service.ResetPassword(ctx, token, "short")

		assert.Error(t, err)
		f.clients.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestToProfileResponse(t *testing.T) {
	cl := testutil.NewTestClient(t)
	require.NoError(t, cl.AttachDocument(client.DocumentTypeID, "documents/"+cl.ID.String()+"/id_document-1-aaaaaa.png"))

	resp := ToProfileResponse(cl)

	assert.Equal(t, "id_document-1-aaaaaa.png", resp.IDDocument)
	assert.Empty(t, resp.SSNDocument)
	assert.NotNil(t, resp.ExcludedBanks)
	assert.Equal(t, "Austin", resp.Address.City)
}
