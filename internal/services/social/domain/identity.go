package domain

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/indogram/internal/platform/errors"
	"github.com/louisbranch/indogram/internal/services/social/storage"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput carries registration fields.
type RegisterInput struct {
	Username string
	Password string
	NameID   string
	Name     string
	Avatar   string
}

// GetOrCreateUser returns the identity for handle, creating an empty one on
// first reference.
func (s *Service) GetOrCreateUser(ctx context.Context, handle string) (User, error) {
	handle, err := normalizeHandle(handle, apperrors.CodeUsernameRequired)
	if err != nil {
		return User{}, err
	}
	record, err := s.ensureUser(ctx, handle)
	if err != nil {
		return User{}, err
	}
	following, err := s.stores.Users.ListFollowing(ctx, handle)
	if err != nil {
		return User{}, fmt.Errorf("list following: %w", err)
	}
	return userFromRecord(record, following), nil
}

// ensureUser loads or creates the identity row of an already-normalized handle.
func (s *Service) ensureUser(ctx context.Context, handle string) (storage.UserRecord, error) {
	record, err := s.stores.Users.GetUser(ctx, handle)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	now := s.nowUTC()
	record = storage.UserRecord{
		Handle:      handle,
		DisplayName: handle,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.stores.Users.CreateUser(ctx, record); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// Lost a creation race; the winner's row is equivalent.
			return s.stores.Users.GetUser(ctx, handle)
		}
		return storage.UserRecord{}, fmt.Errorf("create user: %w", err)
	}
	return record, nil
}

// SetCredential stores a password hash for an existing handle.
func (s *Service) SetCredential(ctx context.Context, handle string, password string) error {
	record, err := s.stores.Users.GetUser(ctx, handle)
	if err != nil {
		return notFoundAs(err, apperrors.CodeUserNotFound, "user not found")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	record.PasswordHash = string(hash)
	record.UpdatedAt = s.nowUTC()
	if err := s.stores.Users.UpdateUser(ctx, record); err != nil {
		return notFoundAs(err, apperrors.CodeUserNotFound, "user not found")
	}
	return nil
}

// VerifyCredential reports whether password matches the stored hash. Users
// without a credential never verify.
func (s *Service) VerifyCredential(ctx context.Context, handle string, password string) (bool, error) {
	record, err := s.stores.Users.GetUser(ctx, handle)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get user: %w", err)
	}
	if !record.HasCredential() {
		return false, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password: %w", err)
	}
}

// Register sets a credential for handle, claiming an implicitly created
// identity when one exists.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Session, error) {
	handle, err := normalizeHandle(input.Username, apperrors.CodeUsernameRequired)
	if err != nil {
		return Session{}, err
	}
	if len(input.Password) < MinPasswordLength {
		return Session{}, apperrors.New(apperrors.CodeWeakPassword, "password is too short")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.passwordCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowUTC()
	nameID := trimmed(input.NameID)
	name := trimmed(input.Name)
	record, err := s.stores.Users.GetUser(ctx, handle)
	switch {
	case err == nil:
		if record.HasCredential() {
			return Session{}, apperrors.New(apperrors.CodeUserExists, "user already registered")
		}
		record.PasswordHash = string(hash)
		if nameID != "" && record.NameID == "" {
			record.NameID = nameID
		}
		if name != "" && (record.DisplayName == "" || record.DisplayName == record.Handle) {
			record.DisplayName = name
		}
		if input.Avatar != "" && record.Avatar == "" {
			record.Avatar = input.Avatar
		}
		record.UpdatedAt = now
		if err := s.stores.Users.UpdateUser(ctx, record); err != nil {
			return Session{}, fmt.Errorf("update user: %w", err)
		}
	case errors.Is(err, storage.ErrNotFound):
		record = storage.UserRecord{
			Handle:       handle,
			DisplayName:  firstNonEmpty(name, handle),
			NameID:       firstNonEmpty(nameID, handle),
			Avatar:       input.Avatar,
			PasswordHash: string(hash),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.stores.Users.CreateUser(ctx, record); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return Session{}, apperrors.New(apperrors.CodeUserExists, "user already registered")
			}
			return Session{}, fmt.Errorf("create user: %w", err)
		}
	default:
		return Session{}, fmt.Errorf("get user: %w", err)
	}
	return s.session(ctx, record)
}

// Login verifies a password and issues a session.
func (s *Service) Login(ctx context.Context, handle string, password string) (Session, error) {
	handle = trimmed(handle)
	if handle == "" || password == "" {
		return Session{}, apperrors.New(apperrors.CodeCredentialsRequired, "username and password are required")
	}
	record, err := s.stores.Users.GetUser(ctx, handle)
	if err != nil {
		return Session{}, notFoundAs(err, apperrors.CodeUserNotFound, "user not found")
	}
	if !record.HasCredential() {
		return Session{}, apperrors.New(apperrors.CodeUserNotFound, "user not registered")
	}
	ok, err := s.VerifyCredential(ctx, handle, password)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, apperrors.New(apperrors.CodeInvalidCredentials, "password mismatch")
	}
	return s.session(ctx, record)
}

// Me returns the authenticated identity.
func (s *Service) Me(ctx context.Context, handle string) (User, error) {
	if handle == "" {
		return User{}, apperrors.New(apperrors.CodeUnauthorized, "authentication required")
	}
	record, err := s.stores.Users.GetUser(ctx, handle)
	if err != nil {
		return User{}, notFoundAs(err, apperrors.CodeUserNotFound, "user not found")
	}
	following, err := s.stores.Users.ListFollowing(ctx, handle)
	if err != nil {
		return User{}, fmt.Errorf("list following: %w", err)
	}
	return userFromRecord(record, following), nil
}

// SearchUsers matches query against name ids, annotated relative to viewer.
func (s *Service) SearchUsers(ctx context.Context, viewer string, query string) ([]SearchResult, error) {
	query = trimmed(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	records, err := s.stores.Users.SearchUsers(ctx, query, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	relations, err := s.relations(ctx, viewer)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(records))
	for _, record := range records {
		results = append(results, SearchResult{
			Handle:      record.Handle,
			NameID:      record.NameID,
			Avatar:      record.Avatar,
			IsFollowing: relations.IsFollowing(record.Handle),
			IsMutual:    relations.IsMutual(record.Handle),
		})
	}
	return results, nil
}

func (s *Service) session(ctx context.Context, record storage.UserRecord) (Session, error) {
	token, err := s.tokens.Issue(record.Handle)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	following, err := s.stores.Users.ListFollowing(ctx, record.Handle)
	if err != nil {
		return Session{}, fmt.Errorf("list following: %w", err)
	}
	return Session{Token: token, User: userFromRecord(record, following)}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
