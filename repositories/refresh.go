//go:generate go run go.uber.org/mock/mockgen -source=refresh.go -destination=../mocks/mock_refresh_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// expiredGrace keeps an expired grant readable for a while so that its use is
// reported as expired rather than unknown.
const expiredGrace = 24 * time.Hour

// IRefreshRepository stores refresh grants. Tokens are single use: Consume
// deletes the grant it returns, expired or not.
type IRefreshRepository interface {
	SaveGrant(grant domain.RefreshGrant) error
	Consume(token string) (domain.RefreshGrant, error)
	Revoke(token string, userID uuid.UUID) error
}

type RefreshRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRefreshRepository(db *badger.DB, log *slog.Logger) IRefreshRepository {
	return &RefreshRepository{db: db, log: log}
}

type diskGrant struct {
	UserID    string `json:"userId"`
	ExpiresAt int64  `json:"expiresAt"`
}

func refreshKey(token string) []byte { return []byte("refresh:" + token) }

// SaveGrant lets badger drop the entry by itself once the grace period after
// expiry is over. The expiry itself is checked by the caller of Consume.
func (r RefreshRepository) SaveGrant(grant domain.RefreshGrant) error {
	ttl := time.Until(grant.ExpiresAt) + expiredGrace
	if ttl <= 0 {
		return nil
	}
	data, err := jsonMarshal(diskGrant{UserID: grant.UserID.String(), ExpiresAt: grant.ExpiresAt.UnixNano()})
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(refreshKey(grant.Token), data).WithTTL(ttl))
	})
}

func (r RefreshRepository) Consume(token string) (domain.RefreshGrant, error) {
	var grant diskGrant
	err := update(r.db, r.log, func(txn *badger.Txn) error {
		if err := getJSON(txn, refreshKey(token), &grant); err != nil {
			return err
		}
		return txn.Delete(refreshKey(token))
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.RefreshGrant{}, errors.ErrRefreshTokenUnknown
	}
	if err != nil {
		return domain.RefreshGrant{}, err
	}

	userID, err := uuid.Parse(grant.UserID)
	if err != nil {
		return domain.RefreshGrant{}, err
	}
	return domain.RefreshGrant{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Unix(0, grant.ExpiresAt).UTC(),
	}, nil
}

// Revoke deletes the grant only when it belongs to userID.
// Revoking an unknown token is a no-op, a grant of another user is
// reported with errors.ErrRefreshTokenNotOwned and left untouched.
func (r RefreshRepository) Revoke(token string, userID uuid.UUID) error {
	return update(r.db, r.log, func(txn *badger.Txn) error {
		var grant diskGrant
		err := getJSON(txn, refreshKey(token), &grant)
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if grant.UserID != userID.String() {
			return errors.ErrRefreshTokenNotOwned
		}
		return txn.Delete(refreshKey(token))
	})
}
