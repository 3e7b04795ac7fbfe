package services

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/account"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

var defaultRoles = []string{"user"}

type AccountService struct {
	log             *slog.Logger
	users           repositories.IUserRepository
	refresh         repositories.IRefreshRepository
	issuer          *auth.Issuer
	refreshDuration time.Duration
	dispatcher      contract.IDispatcher
	now             func() time.Time
}

func NewAccountService(
	log *slog.Logger,
	users repositories.IUserRepository,
	refresh repositories.IRefreshRepository,
	issuer *auth.Issuer,
	refreshDuration time.Duration,
	dispatcher contract.IDispatcher,
) *AccountService {
	return &AccountService{
		log:             log,
		users:           users,
		refresh:         refresh,
		issuer:          issuer,
		refreshDuration: refreshDuration,
		dispatcher:      dispatcher,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccountService) Register(_ context.Context, cmd account.RegisterAccount) (domain.Result[uuid.UUID], error) {
	// Hashing happens here so the repository never sees a plain password
	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return domain.Result[uuid.UUID]{}, fmt.Errorf("hashing failed: %w", err)
	}

	acc := domain.Account{
		ID:           uuid.New(),
		Email:        strings.TrimSpace(cmd.Email),
		DisplayName:  strings.TrimSpace(cmd.DisplayName),
		PasswordHash: hash,
		Roles:        defaultRoles,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(acc); err != nil {
		if stderrors.Is(err, errors.ErrUserAlreadyExists) {
			return domain.Fail[uuid.UUID](errors.Field(errors.CodeUserAlreadyExists, "email",
				"an account already uses this email", cmd.Email)), nil
		}
		return domain.Result[uuid.UUID]{}, err
	}

	s.log.Info("Account registered", "user_id", acc.ID)
	return domain.Ok(acc.ID), nil
}

func (s *AccountService) Login(ctx context.Context, cmd account.Login) (domain.Result[domain.Session], error) {
	acc, err := s.users.GetUserByEmail(cmd.Email)
	if err != nil {
		// Same answer for an unknown email and a wrong password
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return invalidCredentials(), nil
		}
		return domain.Result[domain.Session]{}, err
	}

	match, err := auth.ComparePassword(cmd.Password, acc.PasswordHash)
	if err != nil {
		return domain.Result[domain.Session]{}, err
	}
	if !match {
		return invalidCredentials(), nil
	}

	session, err := s.openSession(acc)
	if err != nil {
		return domain.Result[domain.Session]{}, err
	}
	s.dispatcher.Dispatch(ctx, event.NewUserLoggedIn(acc.ID, s.now()))
	return domain.Ok(session), nil
}

// Refresh rotates the refresh token: the presented one is consumed whatever the outcome.
func (s *AccountService) Refresh(_ context.Context, cmd account.RefreshSession) (domain.Result[domain.Session], error) {
	grant, err := s.refresh.Consume(cmd.RefreshToken)
	if err != nil {
		if stderrors.Is(err, errors.ErrRefreshTokenUnknown) {
			return domain.Fail[domain.Session](errors.New(errors.CodeRefreshTokenInvalid, "refresh token is invalid").
				WithField("refreshToken")), nil
		}
		return domain.Result[domain.Session]{}, err
	}
	if grant.Expired(s.now()) {
		return domain.Fail[domain.Session](errors.New(errors.CodeRefreshTokenExpired, "refresh token has expired").
			WithField("refreshToken")), nil
	}

	acc, err := s.users.GetUserByID(grant.UserID)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return domain.Fail[domain.Session](errors.New(errors.CodeUserNotFound, "user not found").
				WithMetadata("UserId", grant.UserID.String())), nil
		}
		return domain.Result[domain.Session]{}, err
	}

	session, err := s.openSession(acc)
	if err != nil {
		return domain.Result[domain.Session]{}, err
	}
	return domain.Ok(session), nil
}

// Logout revokes the given refresh token when it belongs to the caller.
// A token of another user is refused and stays valid.
func (s *AccountService) Logout(ctx context.Context, cmd account.Logout) (domain.Result[domain.Unit], error) {
	if cmd.RefreshToken != "" {
		err := s.refresh.Revoke(cmd.RefreshToken, cmd.UserID)
		if stderrors.Is(err, errors.ErrRefreshTokenNotOwned) {
			s.log.Warn("Logout with a refresh token of another user", "user_id", cmd.UserID)
			return domain.Fail[domain.Unit](errors.New(errors.CodeRefreshTokenInvalid, "refresh token is invalid").
				WithField("refreshToken")), nil
		}
		if err != nil {
			return domain.Result[domain.Unit]{}, err
		}
	}
	s.dispatcher.Dispatch(ctx, event.NewUserLoggedOut(cmd.UserID, s.now()))
	return domain.Ok(domain.Unit{}), nil
}

func (s *AccountService) openSession(acc domain.Account) (domain.Session, error) {
	accessToken, expiresAt, err := s.issuer.Generate(acc.ID, acc.Roles)
	if err != nil {
		return domain.Session{}, err
	}
	refreshToken, err := auth.NewRefreshToken()
	if err != nil {
		return domain.Session{}, err
	}
	grant := domain.RefreshGrant{
		Token:     refreshToken,
		UserID:    acc.ID,
		ExpiresAt: s.now().Add(s.refreshDuration),
	}
	if err := s.refresh.SaveGrant(grant); err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		UserID:       acc.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func invalidCredentials() domain.Result[domain.Session] {
	return domain.Fail[domain.Session](errors.New(errors.CodeInvalidCredentials, "email or password is incorrect"))
}
