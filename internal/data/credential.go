package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"OAuthDropins/pkg/crypto"
	pkgerrors "OAuthDropins/pkg/errors"
	pkglog "OAuthDropins/pkg/log"
	"OAuthDropins/pkg/oauth/providers"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SiteReddit identifies credentials obtained from reddit.
const SiteReddit = "reddit"

// ErrCredentialNotFound is returned when no credential exists for an id.
var ErrCredentialNotFound = errors.New("credential not found")

// RedditAuth is the GORM model for reddit_auths: one row per reddit username.
// RefreshToken holds the plaintext and is never persisted or cached.
type RedditAuth struct {
	ID                    string    `gorm:"primaryKey;column:id;size:64" json:"id"`
	RefreshTokenEncrypted string    `gorm:"column:refresh_token_encrypted;type:text;not null" json:"refresh_token_encrypted"`
	UserJSON              string    `gorm:"column:user_json;type:text" json:"user_json"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	RefreshToken string `gorm:"-" json:"-"`
}

// TableName specifies the table name for GORM.
func (RedditAuth) TableName() string {
	return "reddit_auths"
}

// SiteName returns the provider this credential belongs to.
func (a *RedditAuth) SiteName() string {
	return SiteReddit
}

// UserDisplayName returns the reddit username.
func (a *RedditAuth) UserDisplayName() string {
	return a.ID
}

// AccessToken returns the long-lived refresh token; reddit access tokens are minted from it on demand.
func (a *RedditAuth) AccessToken() string {
	return a.RefreshToken
}

// Profile decodes the stored profile snapshot.
func (a *RedditAuth) Profile() (*providers.RedditUser, error) {
	if a.UserJSON == "" {
		return &providers.RedditUser{}, nil
	}
	var u providers.RedditUser
	if err := json.Unmarshal([]byte(a.UserJSON), &u); err != nil {
		return nil, fmt.Errorf("invalid user_json for %s: %w", a.ID, err)
	}
	return &u, nil
}

// NewRedditAuth builds a credential from an exchanged token and the /api/v1/me snapshot.
// The id is always the reddit username, never a client supplied value.
func NewRedditAuth(user *providers.RedditUser, refreshToken string) (*RedditAuth, error) {
	if user == nil || user.Name == "" {
		return nil, errors.New("reddit user name is required")
	}
	if refreshToken == "" {
		return nil, errors.New("refresh token is required")
	}
	b, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user snapshot: %w", err)
	}
	return &RedditAuth{
		ID:           user.Name,
		UserJSON:     string(b),
		RefreshToken: refreshToken,
	}, nil
}

// CredentialRepo persists RedditAuth rows with the refresh token encrypted at rest.
type CredentialRepo struct {
	db     *gorm.DB
	cache  CacheClient
	crypto *crypto.AESCrypto
	log    *pkglog.LogHelper
}

// NewCredentialRepo creates a CredentialRepo.
func NewCredentialRepo(d *Data, c *crypto.AESCrypto, logger log.Logger) *CredentialRepo {
	return &CredentialRepo{
		db:     d.db,
		cache:  d.cache,
		crypto: c,
		log:    pkglog.NewLogHelper(logger),
	}
}

func credentialCacheKey(id string) string {
	return BuildCacheKey(CacheKeyCredential, SiteReddit, id)
}

// Upsert inserts the credential or overwrites the existing row with the same id.
func (r *CredentialRepo) Upsert(ctx context.Context, auth *RedditAuth) error {
	if auth.ID == "" {
		return errors.New("credential id is required")
	}
	if auth.RefreshToken == "" {
		return errors.New("refresh token is required")
	}

	encrypted, err := r.crypto.Encrypt(auth.RefreshToken, auth.ID)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}
	auth.RefreshTokenEncrypted = encrypted

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(auth).Error
	if err != nil {
		dbErr := pkgerrors.ClassifyDBError(err)
		r.log.Errorw(log.DefaultMessageKey, "failed to upsert credential",
			"id", auth.ID, "error_type", dbErr.Type.String(), "retryable", dbErr.Retryable(), "error", err)
		return dbErr
	}

	if r.cache != nil {
		if err := r.cache.Delete(ctx, credentialCacheKey(auth.ID)); err != nil {
			r.log.Warnw(log.DefaultMessageKey, "failed to invalidate credential cache", "id", auth.ID, "error", err)
		}
	}

	r.log.Database("credential upserted", "id", auth.ID)
	return nil
}

// Get loads a credential by reddit username and decrypts its refresh token.
func (r *CredentialRepo) Get(ctx context.Context, id string) (*RedditAuth, error) {
	var row RedditAuth

	cached := false
	if r.cache != nil {
		switch err := r.cache.Get(ctx, credentialCacheKey(id), &row); {
		case err == nil:
			cached = true
		case !errors.Is(err, ErrCacheNotFound):
			r.log.Warnw(log.DefaultMessageKey, "credential cache read failed", "id", id, "error", err)
		}
	}

	if !cached {
		err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
		if err != nil {
			if pkgerrors.IsNotFoundError(err) {
				return nil, ErrCredentialNotFound
			}
			if pkgerrors.IsConnectionError(err) {
				r.log.Warnw(log.DefaultMessageKey, "credential store unreachable", "id", id, "error", err)
			}
			return nil, pkgerrors.ClassifyDBError(err)
		}

		if r.cache != nil {
			if err := r.cache.Set(ctx, credentialCacheKey(id), &row, TTLCredential); err != nil {
				r.log.Warnw(log.DefaultMessageKey, "credential cache write failed", "id", id, "error", err)
			}
		}
	}

	token, err := r.crypto.Decrypt(row.RefreshTokenEncrypted, row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token for %s: %w", row.ID, err)
	}
	row.RefreshToken = token

	return &row, nil
}
