package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/himalai/expense-service/internal/cache"
	"github.com/himalai/expense-service/internal/logger"
	"github.com/himalai/expense-service/internal/models"
	"github.com/himalai/expense-service/internal/storage"
)

type ProfileService struct {
	users storage.UserStore
	cache *cache.Cache
	log   *logger.Logger
}

// NewProfileService wires profile reads and admin user management.
// Cache may be nil.
func NewProfileService(users storage.UserStore, c *cache.Cache) *ProfileService {
	return &ProfileService{
		users: users,
		cache: c,
		log:   logger.New("profile-service"),
	}
}

// ProfileView is the combined account and profile payload.
type ProfileView struct {
	User    *models.User    `json:"user"`
	Profile *models.Profile `json:"profile"`
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*ProfileView, error) {
	if s.cache != nil {
		var view ProfileView
		if found, err := s.cache.GetJSON(ctx, profileKey(userID), &view); err == nil && found {
			return &view, nil
		}
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		// Accounts that predate profiles get one on first read, with
		// no bonus points.
		profile = &models.Profile{ID: uuid.New().String(), UserID: userID}
		if err := s.users.CreateProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		s.log.Info("Created missing profile for %s", userID)
	}

	view := &ProfileView{User: user, Profile: profile}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, profileKey(userID), view); err != nil {
			s.log.Warn("Failed to cache profile for %s: %v", userID, err)
		}
	}
	return view, nil
}

type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Bio       *string
	Gender    *string
	Age       *int
}

// Update applies a partial profile update. The completeness flag is
// recomputed: a profile is complete once bio, gender, and age are all
// set.
func (s *ProfileService) Update(ctx context.Context, userID string, input UpdateProfileInput) (*ProfileView, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNotFound
	}

	if input.FirstName != nil || input.LastName != nil {
		if input.FirstName != nil {
			user.FirstName = *input.FirstName
		}
		if input.LastName != nil {
			user.LastName = *input.LastName
		}
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
	}

	if input.Bio != nil {
		profile.Bio = *input.Bio
	}
	if input.Gender != nil {
		profile.Gender = *input.Gender
	}
	if input.Age != nil {
		if *input.Age < 0 || *input.Age > 150 {
			return nil, fmt.Errorf("age out of range")
		}
		profile.Age = *input.Age
	}
	profile.Complete = profile.Bio != "" && profile.Gender != "" && profile.Age > 0

	if err := s.users.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return &ProfileView{User: user, Profile: profile}, nil
}

// ListUsers is an admin operation.
func (s *ProfileService) ListUsers(ctx context.Context, search string, limit, offset int) ([]*models.User, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.users.ListUsers(ctx, search, limit, offset)
}

// DeleteUser removes an account with its profile and ledger. Admins
// cannot delete themselves; demote first, then another admin deletes.
func (s *ProfileService) DeleteUser(ctx context.Context, adminID, targetID string) error {
	if adminID == targetID {
		return ErrPermissionDenied
	}

	user, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}

	if err := s.users.DeleteUser(ctx, targetID); err != nil {
		return err
	}

	s.invalidate(ctx, targetID)
	s.log.Info("Admin %s deleted user %s", adminID, targetID)
	return nil
}

// SetAdmin grants or revokes the admin flag. An admin cannot revoke
// their own flag, so the system always keeps at least one admin.
func (s *ProfileService) SetAdmin(ctx context.Context, adminID, targetID string, admin bool) error {
	if adminID == targetID && !admin {
		return ErrPermissionDenied
	}

	user, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}

	user.Admin = admin
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return err
	}

	s.invalidate(ctx, targetID)
	return nil
}

func (s *ProfileService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, profileKey(userID)); err != nil {
		s.log.Warn("Failed to invalidate profile cache for %s: %v", userID, err)
	}
}

func profileKey(userID string) string {
	return "profile:" + userID
}
