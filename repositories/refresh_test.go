package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestRefreshRepository_Consume_Is_Single_Use(t *testing.T) {
	req := require.New(t)
	repository := NewRefreshRepository(openDB(t), logs.GetLoggerFromLevel(slog.LevelDebug))
	grant := domain.RefreshGrant{
		Token:     "opaque-token",
		UserID:    uuid.New(),
		ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond),
	}
	req.NoError(repository.SaveGrant(grant))

	consumed, err := repository.Consume(grant.Token)
	req.NoError(err)
	req.Equal(grant, consumed)

	_, err = repository.Consume(grant.Token)
	req.ErrorIs(err, errors.ErrRefreshTokenUnknown)
}

func TestRefreshRepository_Revoke(t *testing.T) {
	owner := uuid.New()
	save := func(t *testing.T) IRefreshRepository {
		repository := NewRefreshRepository(openDB(t), logs.GetLoggerFromLevel(slog.LevelDebug))
		require.NoError(t, repository.SaveGrant(domain.RefreshGrant{Token: "t", UserID: owner, ExpiresAt: time.Now().Add(time.Hour)}))
		return repository
	}

	t.Run("owner revokes", func(t *testing.T) {
		req := require.New(t)
		repository := save(t)

		req.NoError(repository.Revoke("t", owner))
		req.NoError(repository.Revoke("t", owner))

		_, err := repository.Consume("t")
		req.ErrorIs(err, errors.ErrRefreshTokenUnknown)
	})

	t.Run("another user cannot revoke", func(t *testing.T) {
		req := require.New(t)
		repository := save(t)

		err := repository.Revoke("t", uuid.New())

		req.ErrorIs(err, errors.ErrRefreshTokenNotOwned)
		grant, err := repository.Consume("t")
		req.NoError(err)
		req.Equal(owner, grant.UserID)
	})

	t.Run("unknown token", func(t *testing.T) {
		require.NoError(t, save(t).Revoke("missing", owner))
	})
}

func TestRefreshRepository_Expired_Grant_Is_Kept_For_Grace_Period(t *testing.T) {
	req := require.New(t)
	repository := NewRefreshRepository(openDB(t), logs.GetLoggerFromLevel(slog.LevelDebug))
	expiresAt := time.Now().Add(-time.Minute).UTC().Truncate(time.Microsecond)

	// Given a grant that expired a minute ago
	req.NoError(repository.SaveGrant(domain.RefreshGrant{Token: "old", UserID: uuid.New(), ExpiresAt: expiresAt}))

	// When it is consumed
	grant, err := repository.Consume("old")

	// Then it is still found and reports its past expiry
	req.NoError(err)
	req.Equal(expiresAt, grant.ExpiresAt)
	req.True(grant.Expired(time.Now()))
}

func TestRefreshRepository_Grant_Past_Grace_Is_Not_Stored(t *testing.T) {
	repository := NewRefreshRepository(openDB(t), logs.GetLoggerFromLevel(slog.LevelDebug))

	require.NoError(t, repository.SaveGrant(domain.RefreshGrant{Token: "ancient", UserID: uuid.New(), ExpiresAt: time.Now().Add(-expiredGrace - time.Minute)}))

	_, err := repository.Consume("ancient")
	require.ErrorIs(t, err, errors.ErrRefreshTokenUnknown)
}
