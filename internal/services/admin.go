package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"contas/internal/core"
)

// ErrNotAdmin rejects administrative calls from regular users.
var ErrNotAdmin = errors.New("administrator privileges required")

// AdminStore is the persistence surface behind administrative operations.
type AdminStore interface {
	GetUser(ctx context.Context, id string) (core.User, error)
	MaintenanceMode(ctx context.Context) (bool, error)
	SetMaintenanceMode(ctx context.Context, on bool) error
	CreateNotification(ctx context.Context, n core.Notification) (string, error)
	DeleteNotification(ctx context.Context, id string) error
	ListNotifications(ctx context.Context) ([]core.Notification, error)
}

// AdminService guards the maintenance switch and broadcast notifications.
// Every mutation re-checks the caller's admin flag against storage; the
// request header alone is never trusted for this.
type AdminService struct {
	store AdminStore
}

func NewAdminService(store AdminStore) *AdminService {
	return &AdminService{store: store}
}

func (s *AdminService) requireAdmin(ctx context.Context, callerID string) error {
	user, err := s.store.GetUser(ctx, callerID)
	if err != nil {
		return fmt.Errorf("load caller: %w", err)
	}
	if !user.Admin {
		return ErrNotAdmin
	}
	return nil
}

// MaintenanceMode reports the flag. Readable by anyone; the HTTP layer uses
// it to gate regular users out during maintenance.
func (s *AdminService) MaintenanceMode(ctx context.Context) (bool, error) {
	return s.store.MaintenanceMode(ctx)
}

func (s *AdminService) SetMaintenanceMode(ctx context.Context, callerID string, on bool) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}
	if err := s.store.SetMaintenanceMode(ctx, on); err != nil {
		return fmt.Errorf("set maintenance mode: %w", err)
	}
	slog.InfoContext(ctx, "Maintenance mode toggled", "enabled", on, "by", callerID)
	return nil
}

// Broadcast publishes a notification shown to every user.
func (s *AdminService) Broadcast(ctx context.Context, callerID string, n core.Notification) (string, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return "", err
	}
	if err := n.Validate(); err != nil {
		return "", fmt.Errorf("validate notification: %w", err)
	}

	caller, err := s.store.GetUser(ctx, callerID)
	if err != nil {
		return "", fmt.Errorf("load caller: %w", err)
	}
	n.Author = caller.Name

	id, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		return "", fmt.Errorf("save notification: %w", err)
	}
	slog.InfoContext(ctx, "Notification broadcast", "id", id, "type", n.Type, "by", callerID)
	return id, nil
}

func (s *AdminService) RemoveNotification(ctx context.Context, callerID, id string) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}
	if err := s.store.DeleteNotification(ctx, id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// Notifications lists all broadcasts, newest first. No admin guard: every
// user sees the feed.
func (s *AdminService) Notifications(ctx context.Context) ([]core.Notification, error) {
	return s.store.ListNotifications(ctx)
}
