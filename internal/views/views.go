// Package views builds the read-only, couple-scoped aggregates: dashboard
// statistics, the partner overview and the recent activity feed.
package views

import (
	"context"
	"time"

	"to-dogether/internal/access"
	"to-dogether/internal/apperr"
	"to-dogether/internal/models"
	"to-dogether/internal/repository"
)

const (
	DefaultActivityLimit = 10
	MaxActivityLimit     = 50
)

type Service struct {
	store repository.Store
	now   func() time.Time
}

func NewService(store repository.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

type DashboardStats struct {
	TotalTasks        int     `json:"total_tasks"`
	CompletedToday    int     `json:"completed_today"`
	PendingTasks      int     `json:"pending_tasks"`
	HighPriorityTasks int     `json:"high_priority_tasks"`
	MyTasks           int     `json:"my_tasks"`
	PartnerTasks      int     `json:"partner_tasks"`
	PartnerUsername   *string `json:"partner_username"`
}

type ListOverview struct {
	models.TodoList
	// CanEdit is true when the caller may mutate the list.
	CanEdit bool              `json:"can_edit"`
	Items   []models.TodoItem `json:"items"`
}

type PartnerOverview struct {
	Partner *models.User   `json:"partner"`
	Lists   []ListOverview `json:"lists"`
}

type RecentActivities struct {
	Activities []models.ActivityEntry `json:"activities"`
	TotalCount int                    `json:"total_count"`
}

// couple returns the caller and the caller's partner, which is nil until
// someone joins. Unpaired callers get ErrNotPaired.
func couple(ctx context.Context, q repository.Queries, userID int) (caller, partner *models.User, err error) {
	caller, err = q.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !caller.Paired() {
		return nil, nil, apperr.ErrNotPaired
	}
	members, err := q.ListCoupleMembers(ctx, *caller.CoupleID)
	if err != nil {
		return nil, nil, err
	}
	for i := range members {
		if members[i].ID != caller.ID {
			partner = &members[i]
			break
		}
	}
	return caller, partner, nil
}

func memberIDs(caller, partner *models.User) []int {
	if partner == nil {
		return []int{caller.ID}
	}
	return []int{caller.ID, partner.ID}
}

// DashboardStats counts items over every list owned by either member.
// "Today" is the current UTC calendar day.
func (s *Service) DashboardStats(ctx context.Context, userID int) (*DashboardStats, error) {
	stats := &DashboardStats{}
	err := s.store.RunTransaction(ctx, func(q repository.Queries) error {
		caller, partner, err := couple(ctx, q, userID)
		if err != nil {
			return err
		}
		items, err := q.ListItemsByOwners(ctx, memberIDs(caller, partner))
		if err != nil {
			return err
		}

		now := s.now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		tomorrow := today.AddDate(0, 0, 1)

		for _, it := range items {
			stats.TotalTasks++
			switch it.Status {
			case models.StatusDone:
				updated := it.UpdatedAt.UTC()
				if !updated.Before(today) && updated.Before(tomorrow) {
					stats.CompletedToday++
				}
			case models.StatusPending:
				stats.PendingTasks++
			}
			if it.Severity == models.SeverityHigh {
				stats.HighPriorityTasks++
			}
			if it.OwnerID == caller.ID {
				stats.MyTasks++
			}
		}
		stats.PartnerTasks = stats.TotalTasks - stats.MyTasks
		if partner != nil {
			name := partner.Username
			stats.PartnerUsername = &name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// PartnerOverview returns the partner's lists, oldest first, each with its
// items by ascending order.
func (s *Service) PartnerOverview(ctx context.Context, userID int) (*PartnerOverview, error) {
	var out *PartnerOverview
	err := s.store.RunTransaction(ctx, func(q repository.Queries) error {
		caller, partner, err := couple(ctx, q, userID)
		if err != nil {
			return err
		}
		if partner == nil {
			return apperr.New(apperr.NotFound, "partner not found")
		}

		lists, err := q.ListListsByOwner(ctx, partner.ID)
		if err != nil {
			return err
		}
		out = &PartnerOverview{Partner: partner, Lists: make([]ListOverview, 0, len(lists))}
		subject := access.Subject{UserID: caller.ID, CoupleID: caller.CoupleID}
		for _, l := range lists {
			items, err := q.ListItemsByList(ctx, l.ID)
			if err != nil {
				return err
			}
			if items == nil {
				items = []models.TodoItem{}
			}
			d := access.Decide(subject, access.Resource{OwnerID: l.OwnerID, OwnerCoupleID: partner.CoupleID, IsShared: l.IsShared})
			out.Lists = append(out.Lists, ListOverview{TodoList: l, CanEdit: d.CanWrite(), Items: items})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClampActivityLimit maps a requested limit onto [1, MaxActivityLimit],
// treating non-positive values as DefaultActivityLimit.
func ClampActivityLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultActivityLimit
	case limit > MaxActivityLimit:
		return MaxActivityLimit
	}
	return limit
}

// RecentActivities returns the couple's newest activities and their total count.
func (s *Service) RecentActivities(ctx context.Context, userID, limit int) (*RecentActivities, error) {
	out := &RecentActivities{Activities: []models.ActivityEntry{}}
	err := s.store.RunTransaction(ctx, func(q repository.Queries) error {
		caller, partner, err := couple(ctx, q, userID)
		if err != nil {
			return err
		}
		ids := memberIDs(caller, partner)
		entries, err := q.ListActivitiesByUsers(ctx, ids, ClampActivityLimit(limit))
		if err != nil {
			return err
		}
		out.Activities = append(out.Activities, entries...)
		out.TotalCount, err = q.CountActivitiesByUsers(ctx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
