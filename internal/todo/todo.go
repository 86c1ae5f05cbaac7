// Package todo manages todo lists and their items. Every mutation is
// authorized against the parent list and followed by a best-effort
// activity entry in the same transaction.
package todo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"to-dogether/internal/access"
	"to-dogether/internal/activity"
	"to-dogether/internal/apperr"
	"to-dogether/internal/models"
	"to-dogether/internal/repository"
	"to-dogether/pkg/logger"
)

type Service struct {
	store    repository.Store
	recorder *activity.Recorder
	log      *logger.Loggers
	now      func() time.Time
}

func NewService(store repository.Store, recorder *activity.Recorder, log *logger.Loggers, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, recorder: recorder, log: log, now: now}
}

type ListInput struct {
	Title       string
	Description string
	IsShared    bool
	// ColorCode defaults to models.DefaultListColor on create and keeps
	// the current value on update when empty.
	ColorCode string
}

type ItemInput struct {
	Title       string
	Description string
	// Severity defaults to Medium when nil.
	Severity *models.Severity
}

// ItemUpdate replaces every mutable field of an item.
type ItemUpdate struct {
	Title       string
	Description string
	Status      models.Status
	Severity    models.Severity
	Order       int
}

func validateText(title, description string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.New(apperr.InvalidFormat, "title is required")
	}
	if len([]rune(title)) > models.MaxTitleLength {
		return "", apperr.New(apperr.InvalidFormat, "title must be at most 200 characters")
	}
	if len([]rune(description)) > models.MaxDescriptionLength {
		return "", apperr.New(apperr.InvalidFormat, "description must be at most 1000 characters")
	}
	return title, nil
}

func validateColor(color string) error {
	if color != "" && !models.ValidColorCode(color) {
		return apperr.New(apperr.InvalidFormat, "color code must look like #RRGGBB")
	}
	return nil
}

// decide runs the access check for caller against l.
func decide(ctx context.Context, q repository.Queries, caller *models.User, l *models.TodoList) (access.Decision, error) {
	owner := caller
	if l.OwnerID != caller.ID {
		var err error
		if owner, err = q.GetUserByID(ctx, l.OwnerID); err != nil {
			return access.DeniedNoAccess, err
		}
	}
	return access.Decide(
		access.Subject{UserID: caller.ID, CoupleID: caller.CoupleID},
		access.Resource{OwnerID: l.OwnerID, OwnerCoupleID: owner.CoupleID, IsShared: l.IsShared},
	), nil
}

// writableList loads the list and requires ReadWrite access to it. With
// lock set the list row stays locked until the transaction ends.
func writableList(ctx context.Context, q repository.Queries, userID, listID int, lock bool) (*models.User, *models.TodoList, error) {
	caller, err := q.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	load := q.GetList
	if lock {
		load = q.LockList
	}
	l, err := load(ctx, listID)
	if err != nil {
		return nil, nil, err
	}
	d, err := decide(ctx, q, caller, l)
	if err != nil {
		return nil, nil, err
	}
	if err := access.RequireWrite(d); err != nil {
		return nil, nil, err
	}
	return caller, l, nil
}

// ListMine returns the caller's own lists, oldest first.
func (s *Service) ListMine(ctx context.Context, userID int) ([]models.TodoList, error) {
	var lists []models.TodoList
	err := s.store.RunTransaction(ctx, func(q repository.Queries) error {
		var err error
		lists, err = q.ListListsByOwner(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if lists == nil {
		lists = []models.TodoList{}
	}
	return lists, nil
}

// ListPartner returns the partner's lists, shared or not, oldest first.
// Without a partner yet the result is empty.
func (s *Service) ListPartner(ctx context.Context, userID int) ([]models.TodoList, error) {
	lists := []models.TodoList{}
	err := s.store.RunTransaction(ctx, func(q repository.Queries) error {
		caller, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if !caller.Paired() {
			return apperr.ErrNotPaired
		}
		members, err := q.ListCoupleMembers(ctx, *caller.CoupleID)
		if err != nil {
			return err
		}
		for _, m := range members {
			if m.ID == caller.ID {
				continue
			}
			owned, err := q.ListListsByOwner(ctx, m.ID)
			if err != nil {
				return err
			}
			lists = append(lists, owned...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lists, nil
}

func (s *Service) CreateList(ctx context.Context, userID int, in ListInput) (*models.TodoList, error) {
	title, err := validateText(in.Title, in.Description)
	if err != nil {
		return nil, err
	}
	if err := validateColor(in.ColorCode); err != nil {
		return nil, err
	}
	color := in.ColorCode
	if color == "" {
		color = models.DefaultListColor
	}

	var list *models.TodoList
	err = s.store.RunTransaction(ctx, func(q repository.Queries) error {
		if _, err := q.GetUserByID(ctx, userID); err != nil {
			return err
		}
		now := s.now().UTC()
		list = &models.TodoList{
			OwnerID:     userID,
			Title:       title,
			Description: in.Description,
			IsShared:    in.IsShared,
			ColorCode:   color,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := q.CreateList(ctx, list); err != nil {
			return err
		}
		s.recorder.RecordBestEffort(ctx, q, activity.Entry{
			UserID:      userID,
			Type:        models.ActivityCreated,
			EntityType:  models.EntityTodoList,
			EntityID:    list.ID,
			EntityTitle: list.Title,
		})
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "Create todo list failed", err)
	}
	s.log.Audit.Info("Todo list created", logger.Fields(ctx, zap.Int("listID", list.ID))...)
	return list, nil
}

func (s *Service) UpdateList(ctx context.Context, userID, listID int, in ListInput) (*models.TodoList, error) {
	title, err := validateText(in.Title, in.Description)
	if err != nil {
		return nil, err
	}
	if err := validateColor(in.ColorCode); err != nil {
		return nil, err
	}

	var list *models.TodoList
	err = s.store.RunTransaction(ctx, func(q repository.Queries) error {
		_, l, err := writableList(ctx, q, userID, listID, true)
		if err != nil {
			return err
		}
		l.Title = title
		l.Description = in.Description
		l.IsShared = in.IsShared
		if in.ColorCode != "" {
			l.ColorCode = in.ColorCode
		}
		l.UpdatedAt = s.now().UTC()
		if err := q.UpdateList(ctx, l); err != nil {
			return err
		}
		s.recorder.RecordBestEffort(ctx, q, activity.Entry{
			UserID:      userID,
			Type:        models.ActivityUpdated,
			EntityType:  models.EntityTodoList,
			EntityID:    l.ID,
			EntityTitle: l.Title,
		})
		list = l
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "Update todo list failed", err, zap.Int("listID", listID))
	}
	s.log.Audit.Info("Todo list updated", logger.Fields(ctx, zap.Int("listID", listID))...)
	return list, nil
}

// DeleteList removes the list and, by cascade, its items.
func (s *Service) DeleteList(ctx context.Context, userID, listID int) error {
	err := s.store.RunTransaction(ctx, func(q repository.Queries) error {
		_, l, err := writableList(ctx, q, userID, listID, true)
		if err != nil {
			return err
		}
		if err := q.DeleteList(ctx, l.ID); err != nil {
			return err
		}
		s.recorder.RecordBestEffort(ctx, q, activity.Entry{
			UserID:      userID,
			Type:        models.ActivityDeleted,
			EntityType:  models.EntityTodoList,
			EntityID:    l.ID,
			EntityTitle: l.Title,
		})
		return nil
	})
	if err != nil {
		return s.fail(ctx, "Delete todo list failed", err, zap.Int("listID", listID))
	}
	s.log.Audit.Info("Todo list deleted", logger.Fields(ctx, zap.Int("listID", listID))...)
	return nil
}

// ListItems returns the list's items by ascending order. Any couple member
// may read them, shared or not.
func (s *Service) ListItems(ctx context.Context, userID, listID int) ([]models.TodoItem, error) {
	items := []models.TodoItem{}
	err := s.store.RunTransaction(ctx, func(q repository.Queries) error {
		caller, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		l, err := q.GetList(ctx, listID)
		if err != nil {
			return err
		}
		d, err := decide(ctx, q, caller, l)
		if err != nil {
			return err
		}
		if err := access.RequireRead(d); err != nil {
			return err
		}
		found, err := q.ListItemsByList(ctx, listID)
		items = append(items, found...)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "List todo items failed", err, zap.Int("listID", listID))
	}
	return items, nil
}

// CreateItem appends an item at the list's next order. Orders are never
// reused, even after the highest item is deleted. The list row lock
// serializes concurrent creations in the same list.
func (s *Service) CreateItem(ctx context.Context, userID, listID int, in ItemInput) (*models.TodoItem, error) {
	title, err := validateText(in.Title, in.Description)
	if err != nil {
		return nil, err
	}
	severity := models.SeverityMedium
	if in.Severity != nil {
		severity = *in.Severity
	}
	if !severity.Valid() {
		return nil, apperr.New(apperr.InvalidFormat, "unknown severity")
	}

	var item *models.TodoItem
	err = s.store.RunTransaction(ctx, func(q repository.Queries) error {
		_, l, err := writableList(ctx, q, userID, listID, true)
		if err != nil {
			return err
		}
		order, err := q.NextItemOrder(ctx, l.ID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		item = &models.TodoItem{
			TodoListID:  l.ID,
			Title:       title,
			Description: in.Description,
			Status:      models.StatusPending,
			Severity:    severity,
			Order:       order,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := q.CreateItem(ctx, item); err != nil {
			return err
		}
		s.recorder.RecordBestEffort(ctx, q, itemEntry(userID, models.ActivityItemAdded, l,
			fmt.Sprintf(`Added "%s" to "%s"`, item.Title, l.Title)))
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "Create todo item failed", err, zap.Int("listID", listID))
	}
	s.log.Audit.Info("Todo item created", logger.Fields(ctx, zap.Int("listID", listID), zap.Int("itemID", item.ID))...)
	return item, nil
}

// UpdateItem replaces the item wholesale. The recorded activity follows the
// status transition.
func (s *Service) UpdateItem(ctx context.Context, userID, listID, itemID int, in ItemUpdate) (*models.TodoItem, error) {
	title, err := validateText(in.Title, in.Description)
	if err != nil {
		return nil, err
	}
	if !in.Status.Valid() || !in.Severity.Valid() {
		return nil, apperr.New(apperr.InvalidFormat, "unknown status or severity")
	}

	var item *models.TodoItem
	err = s.store.RunTransaction(ctx, func(q repository.Queries) error {
		_, l, err := writableList(ctx, q, userID, listID, false)
		if err != nil {
			return err
		}
		it, err := q.GetItem(ctx, l.ID, itemID)
		if err != nil {
			return err
		}
		oldStatus := it.Status

		it.Title = title
		it.Description = in.Description
		it.Status = in.Status
		it.Severity = in.Severity
		it.Order = in.Order
		it.UpdatedAt = s.now().UTC()
		if err := q.UpdateItem(ctx, it); err != nil {
			return err
		}

		typ, verb := models.ActivityItemUpdated, "Updated"
		switch {
		case oldStatus != it.Status && it.Status == models.StatusDone:
			typ, verb = models.ActivityItemCompleted, "Completed"
		case oldStatus == models.StatusDone && it.Status == models.StatusPending:
			typ, verb = models.ActivityItemReopened, "Reopened"
		}
		s.recorder.RecordBestEffort(ctx, q, itemEntry(userID, typ, l,
			fmt.Sprintf(`%s "%s" in "%s"`, verb, it.Title, l.Title)))
		item = it
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "Update todo item failed", err, zap.Int("listID", listID), zap.Int("itemID", itemID))
	}
	s.log.Audit.Info("Todo item updated", logger.Fields(ctx, zap.Int("listID", listID), zap.Int("itemID", itemID))...)
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, userID, listID, itemID int) error {
	err := s.store.RunTransaction(ctx, func(q repository.Queries) error {
		_, l, err := writableList(ctx, q, userID, listID, false)
		if err != nil {
			return err
		}
		it, err := q.GetItem(ctx, l.ID, itemID)
		if err != nil {
			return err
		}
		if err := q.DeleteItem(ctx, l.ID, it.ID); err != nil {
			return err
		}
		s.recorder.RecordBestEffort(ctx, q, itemEntry(userID, models.ActivityItemDeleted, l,
			fmt.Sprintf(`Deleted "%s" from "%s"`, it.Title, l.Title)))
		return nil
	})
	if err != nil {
		return s.fail(ctx, "Delete todo item failed", err, zap.Int("listID", listID), zap.Int("itemID", itemID))
	}
	s.log.Audit.Info("Todo item deleted", logger.Fields(ctx, zap.Int("listID", listID), zap.Int("itemID", itemID))...)
	return nil
}

// itemEntry attributes item activities to the parent list.
func itemEntry(userID int, typ models.ActivityType, l *models.TodoList, msg string) activity.Entry {
	return activity.Entry{
		UserID:      userID,
		Type:        typ,
		EntityType:  models.EntityTodoList,
		EntityID:    l.ID,
		EntityTitle: l.Title,
		Message:     msg,
	}
}

// fail logs err on the channel matching its kind and returns it unchanged.
func (s *Service) fail(ctx context.Context, msg string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("code", string(apperr.KindOf(err))), zap.Error(err))
	switch apperr.KindOf(err) {
	case apperr.Internal:
		s.log.Error.Error(msg, logger.Fields(ctx, fields...)...)
	case apperr.NoAccess, apperr.NotPaired:
		s.log.Security.Warn(msg, logger.Fields(ctx, fields...)...)
	default:
		s.log.Audit.Warn(msg, logger.Fields(ctx, fields...)...)
	}
	return err
}
