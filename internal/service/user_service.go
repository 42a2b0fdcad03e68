package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"habit-planner/internal/auth"
	"habit-planner/internal/model"
	"habit-planner/internal/repository"
)

// UserService manages accounts and the ways of signing in to them.
type UserService struct {
	store *repository.Store
	log   *slog.Logger
}

func NewUserService(store *repository.Store, log *slog.Logger) *UserService {
	return &UserService{store: store, log: log}
}

// Register creates a local account with a password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	if _, err := s.store.Users.FindByEmail(ctx, email); err == nil {
		return nil, invalidField("email", "is already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storageErr("register", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{Email: &email, Name: strings.TrimSpace(in.Name), PasswordHash: hash}
	if err := s.store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalidField("email", "is already registered")
		}
		return nil, storageErr("register", err)
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate checks an email and password pair.
func (s *UserService) Authenticate(ctx context.Context, in LoginInput) (*model.User, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	user, err := s.store.Users.FindByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, storageErr("authenticate", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, in.Password); err != nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// FederatedSignIn resolves a Google identity to a user. A known Google account wins,
// then an account with the same verified email gets linked, otherwise one is created.
func (s *UserService) FederatedSignIn(ctx context.Context, id auth.Identity) (*model.User, error) {
	if id.Subject == "" {
		return nil, ErrUnauthorized
	}
	var user *model.User
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		found, err := tx.Users.FindByGoogleID(ctx, id.Subject)
		if err == nil {
			user = found
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		email := normalizeEmail(id.Email)
		if email != "" && id.EmailVerified {
			found, err = tx.Users.FindByEmail(ctx, email)
			switch {
			case err == nil:
				if err := tx.Users.LinkGoogle(ctx, found.ID, id.Subject); err != nil {
					return err
				}
				googleID := id.Subject
				found.GoogleID = &googleID
				user = found
				return nil
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}
		}

		hash, err := auth.UnusablePasswordHash()
		if err != nil {
			return err
		}
		googleID := id.Subject
		user = &model.User{Name: id.Name, GoogleID: &googleID, PasswordHash: hash}
		if email != "" && id.EmailVerified {
			user.Email = &email
		}
		return tx.Users.Create(ctx, user)
	})
	if err != nil {
		return nil, storageErr("federated sign-in", err)
	}
	return user, nil
}

// TelegramUser finds or creates the account behind a Telegram chat.
func (s *UserService) TelegramUser(ctx context.Context, p repository.TelegramProfile) (*model.User, error) {
	hash, err := auth.UnusablePasswordHash()
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users.UpsertFromTelegram(ctx, p, hash)
	if err != nil {
		return nil, storageErr("telegram user", err)
	}
	return user, nil
}

func (s *UserService) Profile(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, storageErr("profile", err)
	}
	return user, nil
}

func (s *UserService) UpdateGender(ctx context.Context, userID uint, in GenderInput) (*model.User, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	if err := s.store.Users.UpdateGender(ctx, userID, in.Gender); err != nil {
		return nil, storageErr("update gender", err)
	}
	return s.Profile(ctx, userID)
}

// TelegramRecipients lists the users the daily digest goes to.
func (s *UserService) TelegramRecipients(ctx context.Context) ([]model.User, error) {
	users, err := s.store.Users.ListTelegramUsers(ctx)
	if err != nil {
		return nil, storageErr("telegram recipients", err)
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
