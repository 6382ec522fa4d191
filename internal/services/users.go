package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"contas/internal/core"
	"contas/internal/storage"
)

var (
	ErrPartnerNotFound = errors.New("no user with that email")
	ErrSelfLink        = errors.New("cannot link a user to themselves")
)

// UserStore is the persistence surface behind identity and partner linking.
type UserStore interface {
	GetUser(ctx context.Context, id string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	UpsertUser(ctx context.Context, u core.User) error
	LinkPartner(ctx context.Context, userID, partnerID string) error
}

// UserService mirrors identities from the fronting auth proxy and manages
// the partner link that turns two accounts into one shared household.
type UserService struct {
	store UserStore
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

// EnsureUser upserts the identity seen on a request and returns the stored
// record, including any partner link established earlier.
func (s *UserService) EnsureUser(ctx context.Context, id, email, name string) (core.User, error) {
	if err := s.store.UpsertUser(ctx, core.User{ID: id, Email: email, Name: name}); err != nil {
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return s.store.GetUser(ctx, id)
}

// OwnerIDs returns the ids whose records the user may see: their own, plus
// the partner's when linked.
func (s *UserService) OwnerIDs(ctx context.Context, userID string) ([]string, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []string{userID}, nil
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.PartnerID == "" {
		return []string{userID}, nil
	}
	return []string{userID, user.PartnerID}, nil
}

// LinkPartner joins the caller with the user registered under partnerEmail.
// The link is symmetric: both sides immediately see the shared view.
func (s *UserService) LinkPartner(ctx context.Context, userID, partnerEmail string) error {
	partner, err := s.store.GetUserByEmail(ctx, partnerEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrPartnerNotFound
		}
		return fmt.Errorf("find partner: %w", err)
	}
	if partner.ID == userID {
		return ErrSelfLink
	}

	if err := s.store.LinkPartner(ctx, userID, partner.ID); err != nil {
		return fmt.Errorf("link partner: %w", err)
	}
	slog.InfoContext(ctx, "Partner linked", "user_id", userID, "partner_id", partner.ID)
	return nil
}
