// Package users is the user directory: account CRUD, credential checks and
// the password-reset flow over the key-value repositories.
package users

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/cryptox"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/passwordtokens"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	usersrepo "github.com/dmitrijs2005/accountkeeper/internal/server/repositories/users"
)

const exportTimeout = 30 * time.Second

var adminRoles = []models.Role{models.RoleAdmin}

type Options struct {
	PasswordTokenTTL time.Duration
	Archiver         Archiver
	Events           EventRecorder
}

type Service struct {
	repo             usersrepo.Repository
	passwordTokens   passwordtokens.Repository
	tokens           TokenDecoder
	mailer           mailer.Mailer
	archiver         Archiver
	events           EventRecorder
	log              logging.Logger
	passwordTokenTTL time.Duration
	now              func() time.Time
	wg               sync.WaitGroup
}

func NewService(m repomanager.RepositoryManager, tokens TokenDecoder, mail mailer.Mailer, log logging.Logger, opts Options) *Service {
	return &Service{
		repo:             m.Users(),
		passwordTokens:   m.PasswordTokens(),
		tokens:           tokens,
		mailer:           mail,
		archiver:         opts.Archiver,
		events:           opts.Events,
		log:              log.With("module", "users"),
		passwordTokenTTL: opts.PasswordTokenTTL,
		now:              time.Now,
	}
}

func (s *Service) record(ctx context.Context, eventType, message string) {
	if s.events != nil {
		s.events.Record(ctx, eventType, message)
	}
}

// Authenticate checks password against the user found by identifier. Unknown
// identifiers and wrong passwords both yield Authorized=false.
func (s *Service) Authenticate(ctx context.Context, identifier, password string, method AuthMethod) (*AuthResult, error) {
	var (
		id  string
		err error
	)

	switch method {
	case EmailAuth:
		id, err = s.repo.IDByEmail(ctx, normalizeEmail(identifier))
	case StreamLineAuth:
		id, err = s.repo.IDByToken(ctx, identifier)
	default:
		return nil, common.ErrAuthMethodNotRecognized
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &AuthResult{}, nil
		}
		return nil, fmt.Errorf("error resolving user: %w", err)
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &AuthResult{}, nil
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	ok, err := cryptox.CheckPassword(password, user.Salt, user.HashedPassword)
	if err != nil {
		return nil, fmt.Errorf("error checking password: %w", err)
	}
	if !ok {
		return &AuthResult{}, nil
	}

	return &AuthResult{User: user, Authorized: true}, nil
}

// New creates a user with a fresh id, salt and url token.
func (s *Service) New(ctx context.Context, in NewUser, password string) (*AddResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || password == "" {
		return nil, common.ErrMissingRequiredParameter
	}

	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.IDByEmail(ctx, email); err == nil {
		return nil, common.ErrUserAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: %v", common.ErrUnableToAddUser, err)
	}

	id, err := cryptox.CreateUUID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnableToAddUser, err)
	}
	hash, err := cryptox.HashPassword(password, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnableToAddUser, err)
	}
	urlToken, err := cryptox.CreateURLToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnableToAddUser, err)
	}

	user := &models.User{
		ID:             id,
		Email:          email,
		Firstname:      in.Firstname,
		Lastname:       in.Lastname,
		Role:           role,
		Salt:           hash.Salt,
		HashedPassword: hash.Hash,
		URLToken:       urlToken,
		CreatedOn:      s.now().UnixMilli(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnableToAddUser, err)
	}

	s.log.Info(ctx, "user added", "id", id, "role", role)
	s.record(ctx, "user", "user added "+id)

	return &AddResult{UserAdded: true, ID: id}, nil
}

// Get resolves exactly one lookup key to a user.
func (s *Service) Get(ctx context.Context, l Lookup) (*models.User, error) {
	if l.count() != 1 {
		return nil, common.ErrMissingRequiredParameter
	}

	var (
		id  string
		err error
	)
	switch {
	case l.ID != "":
		id = l.ID
	case l.Email != "":
		id, err = s.repo.IDByEmail(ctx, normalizeEmail(l.Email))
	case l.Token != "":
		id, err = s.repo.IDByToken(ctx, l.Token)
	default:
		id, err = s.tokens.SubjectFromToken(ctx, l.AccessToken)
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserDoesNotExist
		}
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserDoesNotExist
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// GetAll lists users of role, or of every role when role is empty, oldest
// first and without secrets.
func (s *Service) GetAll(ctx context.Context, role string) ([]models.PublicUser, error) {
	roles := models.Roles
	if role != "" {
		r, err := models.ParseRole(role)
		if err != nil {
			return nil, err
		}
		roles = []models.Role{r}
	}

	result := make([]models.PublicUser, 0)
	for _, r := range roles {
		list, err := s.repo.ListByRole(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrUnableToGetUsers, err)
		}
		for _, u := range list {
			result = append(result, u.Public())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedOn != result[j].CreatedOn {
			return result[i].CreatedOn < result[j].CreatedOn
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Update applies the non-nil fields of in. A password is rehashed with the
// existing salt.
func (s *Service) Update(ctx context.Context, in UpdateUser) (*UpdateResult, error) {
	if in.ID == "" {
		return nil, common.ErrMissingRequiredParameter
	}

	prev, err := s.repo.FindByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserDoesNotExist
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnableToUpdateUser, err)
	}

	next := *prev

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return nil, common.ErrMissingRequiredParameter
		}
		if email != prev.Email {
			owner, err := s.repo.IDByEmail(ctx, email)
			switch {
			case err == nil && owner != prev.ID:
				return nil, common.ErrUserAlreadyExists
			case err != nil && !errors.Is(err, common.ErrorNotFound):
				return nil, fmt.Errorf("%w: %v", common.ErrUnableToUpdateUser, err)
			}
		}
		next.Email = email
	}
	if in.Firstname != nil {
		next.Firstname = *in.Firstname
	}
	if in.Lastname != nil {
		next.Lastname = *in.Lastname
	}
	if in.Role != nil {
		role, err := models.ParseRole(*in.Role)
		if err != nil {
			return nil, err
		}
		next.Role = role
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, common.ErrMissingRequiredParameter
		}
		hash, err := cryptox.HashPassword(*in.Password, prev.Salt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrUnableToUpdateUser, err)
		}
		next.HashedPassword = hash.Hash
	}

	next.UpdatedOn = s.now().UnixMilli()

	if err := s.repo.Update(ctx, prev, &next); err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrUserDoesNotExist
		case errors.Is(err, common.ErrConflict):
			return nil, common.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnableToUpdateUser, err)
	}

	s.log.Info(ctx, "user updated", "id", prev.ID)
	return &UpdateResult{UserUpdated: true, ID: prev.ID}, nil
}

// Delete archives the user and removes the live record with its indexes.
// A configured archiver receives a copy in the background.
func (s *Service) Delete(ctx context.Context, l Lookup) (*DeleteResult, error) {
	user, err := s.Get(ctx, l)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if err := s.repo.Archive(ctx, user, at); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUserCannotBeDeleted, err)
	}

	s.log.Info(ctx, "user archived", "id", user.ID)
	s.record(ctx, "user", "user deleted "+user.ID)

	if s.archiver != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exportTimeout)
			defer cancel()
			if err := s.archiver.Export(ctx, user, at); err != nil {
				s.log.Error(ctx, "error exporting archived user", "id", user.ID, "error", err)
			}
		}()
	}

	return &DeleteResult{UserDeleted: true, ID: user.ID}, nil
}

// SendAskResetPassword mints a reset token for email and mails it.
func (s *Service) SendAskResetPassword(ctx context.Context, email string) error {
	user, err := s.Get(ctx, Lookup{Email: email})
	if err != nil {
		return err
	}

	token, err := cryptox.CreateURLToken()
	if err != nil {
		return fmt.Errorf("error creating password token: %w", err)
	}
	if err := s.passwordTokens.Create(ctx, token, user.ID, s.passwordTokenTTL); err != nil {
		return err
	}

	s.record(ctx, "user", "password reset requested "+user.ID)
	return s.mailer.SendResetPassword(ctx, user, token)
}

func (s *Service) SendPasswordByEmail(ctx context.Context, email, password string) error {
	user, err := s.Get(ctx, Lookup{Email: email})
	if err != nil {
		return err
	}
	return s.mailer.SendPassword(ctx, user, password)
}

// ResetPassword sets password on the user bound to token. Tokens are left to
// expire.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (*UpdateResult, error) {
	if token == "" {
		return nil, common.ErrMissingPasswordToken
	}
	if password == "" {
		return nil, common.ErrMissingRequiredParameter
	}

	id, err := s.passwordTokens.UserID(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrMissingPasswordToken
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnableToResetPassword, err)
	}

	res, err := s.Update(ctx, UpdateUser{ID: id, Password: &password})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnableToResetPassword, err)
	}

	s.record(ctx, "user", "password reset "+id)
	return res, nil
}

// IsAdmin reports whether the owner of accessToken holds an admin role.
func (s *Service) IsAdmin(ctx context.Context, accessToken string) (bool, error) {
	user, err := s.Get(ctx, Lookup{AccessToken: accessToken})
	if err != nil {
		return false, err
	}
	return slices.Contains(adminRoles, user.Role), nil
}

// Wait blocks until background archive exports finish.
func (s *Service) Wait() {
	s.wg.Wait()
}
