package data

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"OAuthDropins/pkg/crypto"
	pkgerrors "OAuthDropins/pkg/errors"
	"OAuthDropins/pkg/oauth/providers"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var credentialColumns = []string{"id", "refresh_token_encrypted", "user_json", "created_at", "updated_at"}

// ciphertextFor matches an encrypted refresh token by decrypting it.
type ciphertextFor struct {
	c         *crypto.AESCrypto
	plaintext string
	id        string
}

func (m ciphertextFor) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	out, err := m.c.Decrypt(s, m.id)
	return err == nil && out == m.plaintext
}

func aliceUser() *providers.RedditUser {
	return &providers.RedditUser{
		Name:         "alice",
		ID:           "abc12",
		CommentKarma: 10,
		LinkKarma:    20,
		CreatedUTC:   1.5e9,
		IconImg:      "https://img.example/alice.png",
	}
}

func setupCredentialRepo(t *testing.T) (*CredentialRepo, sqlmock.Sqlmock, *crypto.AESCrypto, *Data) {
	t.Helper()
	d, mock, _ := setupTestData(t)
	c := testCrypto(t)
	return NewCredentialRepo(d, c, log.DefaultLogger), mock, c, d
}

func TestNewRedditAuth(t *testing.T) {
	auth, err := NewRedditAuth(aliceUser(), "rt1")
	require.NoError(t, err)

	assert.Equal(t, "alice", auth.ID)
	assert.Equal(t, "reddit", auth.SiteName())
	assert.Equal(t, "alice", auth.UserDisplayName())
	assert.Equal(t, "rt1", auth.AccessToken())

	var snapshot map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(auth.UserJSON), &snapshot))
	assert.ElementsMatch(t,
		[]string{"name", "id", "comment_karma", "link_karma", "created_utc", "icon_img"},
		keysOf(snapshot))
	assert.Equal(t, "alice", snapshot["name"])

	profile, err := auth.Profile()
	require.NoError(t, err)
	assert.Equal(t, *aliceUser(), *profile)

	_, err = NewRedditAuth(&providers.RedditUser{}, "rt1")
	assert.Error(t, err)
	_, err = NewRedditAuth(aliceUser(), "")
	assert.Error(t, err)
}

func keysOf(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestCredentialRepo_Upsert(t *testing.T) {
	repo, mock, c, d := setupCredentialRepo(t)
	ctx := context.Background()

	// stale cache entry must be dropped on write
	require.NoError(t, d.GetCache().Set(ctx, credentialCacheKey("alice"), &RedditAuth{ID: "alice"}, time.Minute))

	auth, err := NewRedditAuth(aliceUser(), "rt1")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `reddit_auths`")).
		WithArgs("alice", ciphertextFor{c: c, plaintext: "rt1", id: "alice"}, auth.UserJSON,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Upsert(ctx, auth))
	assert.NotEmpty(t, auth.RefreshTokenEncrypted)
	assert.NotEqual(t, "rt1", auth.RefreshTokenEncrypted)
	require.NoError(t, mock.ExpectationsWereMet())

	var cached RedditAuth
	assert.ErrorIs(t, d.GetCache().Get(ctx, credentialCacheKey("alice"), &cached), ErrCacheNotFound)
}

func TestCredentialRepo_UpsertOverwrites(t *testing.T) {
	repo, mock, c, _ := setupCredentialRepo(t)
	ctx := context.Background()

	first, err := NewRedditAuth(aliceUser(), "rt1")
	require.NoError(t, err)

	updated := aliceUser()
	updated.LinkKarma = 99
	second, err := NewRedditAuth(updated, "rt2")
	require.NoError(t, err)
	require.NotEqual(t, first.UserJSON, second.UserJSON)

	upsert := regexp.QuoteMeta("INSERT INTO `reddit_auths`") + ".*" + regexp.QuoteMeta("ON DUPLICATE KEY UPDATE")
	mock.ExpectExec(upsert).
		WithArgs("alice", ciphertextFor{c: c, plaintext: "rt1", id: "alice"}, first.UserJSON,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(upsert).
		WithArgs("alice", ciphertextFor{c: c, plaintext: "rt2", id: "alice"}, second.UserJSON,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 2))

	require.NoError(t, repo.Upsert(ctx, first))
	require.NoError(t, repo.Upsert(ctx, second))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepo_UpsertValidation(t *testing.T) {
	repo, mock, _, _ := setupCredentialRepo(t)
	ctx := context.Background()

	assert.Error(t, repo.Upsert(ctx, &RedditAuth{RefreshToken: "rt1"}))
	assert.Error(t, repo.Upsert(ctx, &RedditAuth{ID: "alice"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepo_UpsertDBError(t *testing.T) {
	repo, mock, _, _ := setupCredentialRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `reddit_auths`")).
		WillReturnError(&mysql.MySQLError{Number: 1406, Message: "Data too long for column 'id'"})

	auth, err := NewRedditAuth(aliceUser(), "rt1")
	require.NoError(t, err)

	err = repo.Upsert(context.Background(), auth)
	require.Error(t, err)

	var dbErr *pkgerrors.DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, pkgerrors.ErrorTypeDataTooLong, dbErr.Type)
}

func TestCredentialRepo_Get(t *testing.T) {
	repo, mock, c, _ := setupCredentialRepo(t)
	ctx := context.Background()

	encrypted, err := c.Encrypt("rt1", "alice")
	require.NoError(t, err)
	auth, err := NewRedditAuth(aliceUser(), "rt1")
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `reddit_auths`")).
		WillReturnRows(sqlmock.NewRows(credentialColumns).AddRow("alice", encrypted, auth.UserJSON, now, now))

	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.ID)
	assert.Equal(t, "rt1", got.AccessToken())

	// second read is served from the cache, no further SQL expected
	again, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "rt1", again.RefreshToken)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepo_GetNotFound(t *testing.T) {
	repo, mock, _, _ := setupCredentialRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `reddit_auths`")).
		WillReturnRows(sqlmock.NewRows(credentialColumns))

	_, err := repo.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepo_GetConnectionError(t *testing.T) {
	repo, mock, _, _ := setupCredentialRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `reddit_auths`")).
		WillReturnError(mysql.ErrInvalidConn)

	_, err := repo.Get(context.Background(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialNotFound)

	var dbErr *pkgerrors.DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, pkgerrors.ErrorTypeConnectionError, dbErr.Type)
	assert.True(t, dbErr.Retryable())
}

func TestCredentialRepo_GetRowFromAnotherID(t *testing.T) {
	repo, mock, c, _ := setupCredentialRepo(t)

	// a ciphertext copied from bob's row does not decrypt on alice's
	encrypted, err := c.Encrypt("rt-bob", "bob")
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `reddit_auths`")).
		WillReturnRows(sqlmock.NewRows(credentialColumns).AddRow("alice", encrypted, "{}", now, now))

	_, err = repo.Get(context.Background(), "alice")
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
}
