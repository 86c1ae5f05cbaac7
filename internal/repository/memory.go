package repository

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"to-dogether/internal/apperr"
	"to-dogether/internal/models"
)

// MemoryStore keeps everything in process memory. Transactions are fully
// serialized and work on a private copy of the state that replaces the
// shared one only on success. It backs STORE_DRIVER=memory and the tests.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	q := &memQueries{state: s.state.clone()}
	if err := fn(q); err != nil {
		return err
	}
	s.state = q.state
	return nil
}

type memState struct {
	seq        int
	users      map[int]models.User
	couples    map[int]models.Couple
	lists      map[int]models.TodoList
	items      map[int]models.TodoItem
	nextOrder  map[int]int
	tokens     map[int]models.RefreshToken
	activities map[int]models.Activity
}

func newMemState() *memState {
	return &memState{
		users:      map[int]models.User{},
		couples:    map[int]models.Couple{},
		lists:      map[int]models.TodoList{},
		items:      map[int]models.TodoItem{},
		nextOrder:  map[int]int{},
		tokens:     map[int]models.RefreshToken{},
		activities: map[int]models.Activity{},
	}
}

// clone copies the maps. User values are copied on every read and write, so
// sharing their CoupleID pointers between copies is safe.
func (st *memState) clone() *memState {
	return &memState{
		seq:        st.seq,
		users:      maps.Clone(st.users),
		couples:    maps.Clone(st.couples),
		lists:      maps.Clone(st.lists),
		items:      maps.Clone(st.items),
		nextOrder:  maps.Clone(st.nextOrder),
		tokens:     maps.Clone(st.tokens),
		activities: maps.Clone(st.activities),
	}
}

func (st *memState) nextID() int {
	st.seq++
	return st.seq
}

type memQueries struct {
	state *memState
}

func copyUser(u models.User) models.User {
	if u.CoupleID != nil {
		id := *u.CoupleID
		u.CoupleID = &id
	}
	return u
}

func sameCouple(u models.User, coupleID int) bool {
	return u.CoupleID != nil && *u.CoupleID == coupleID
}

func notFoundErr(entity string) error {
	return apperr.New(apperr.NotFound, entity+" not found")
}

// Users

func (q *memQueries) CreateUser(_ context.Context, u *models.User) error {
	for _, existing := range q.state.users {
		if existing.Username == u.Username {
			return apperr.ErrUsernameTaken
		}
	}
	u.ID = q.state.nextID()
	q.state.users[u.ID] = copyUser(*u)
	return nil
}

func (q *memQueries) GetUserByID(_ context.Context, id int) (*models.User, error) {
	u, ok := q.state.users[id]
	if !ok {
		return nil, notFoundErr("user")
	}
	u = copyUser(u)
	return &u, nil
}

func (q *memQueries) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range q.state.users {
		if u.Username == username {
			u = copyUser(u)
			return &u, nil
		}
	}
	return nil, notFoundErr("user")
}

func (q *memQueries) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, u := range q.state.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (q *memQueries) UpdateUserProfile(_ context.Context, id int, username, colorCode string) error {
	u, ok := q.state.users[id]
	if !ok {
		return notFoundErr("user")
	}
	for otherID, other := range q.state.users {
		if otherID != id && other.Username == username {
			return apperr.ErrUsernameTaken
		}
	}
	u = copyUser(u)
	u.Username = username
	u.ColorCode = colorCode
	q.state.users[id] = u
	return nil
}

func (q *memQueries) ListCoupleMembers(_ context.Context, coupleID int) ([]models.User, error) {
	var members []models.User
	for _, u := range q.state.users {
		if sameCouple(u, coupleID) {
			members = append(members, copyUser(u))
		}
	}
	slices.SortFunc(members, func(a, b models.User) int { return cmp.Compare(a.ID, b.ID) })
	return members, nil
}

func (q *memQueries) CountCoupleMembers(_ context.Context, coupleID int) (int, error) {
	n := 0
	for _, u := range q.state.users {
		if sameCouple(u, coupleID) {
			n++
		}
	}
	return n, nil
}

// Couples

func (q *memQueries) CreateCouple(_ context.Context, c *models.Couple) error {
	c.ID = q.state.nextID()
	q.state.couples[c.ID] = *c
	return nil
}

func (q *memQueries) InviteTokenExists(_ context.Context, token string) (bool, error) {
	for _, c := range q.state.couples {
		if c.InviteToken == token {
			return true, nil
		}
	}
	return false, nil
}

// LockActiveCoupleByToken needs no lock here: transactions are serialized.
func (q *memQueries) LockActiveCoupleByToken(_ context.Context, token string) (*models.Couple, error) {
	for _, c := range q.state.couples {
		if c.IsActive && c.InviteToken == token {
			return &c, nil
		}
	}
	return nil, notFoundErr("couple")
}

// Todo lists

func (q *memQueries) CreateList(_ context.Context, l *models.TodoList) error {
	l.ID = q.state.nextID()
	q.state.lists[l.ID] = *l
	return nil
}

func (q *memQueries) GetList(_ context.Context, id int) (*models.TodoList, error) {
	l, ok := q.state.lists[id]
	if !ok {
		return nil, notFoundErr("todo list")
	}
	return &l, nil
}

func (q *memQueries) LockList(ctx context.Context, id int) (*models.TodoList, error) {
	return q.GetList(ctx, id)
}

func (q *memQueries) UpdateList(_ context.Context, l *models.TodoList) error {
	if _, ok := q.state.lists[l.ID]; !ok {
		return notFoundErr("todo list")
	}
	q.state.lists[l.ID] = *l
	return nil
}

func (q *memQueries) DeleteList(_ context.Context, id int) error {
	if _, ok := q.state.lists[id]; !ok {
		return notFoundErr("todo list")
	}
	delete(q.state.lists, id)
	delete(q.state.nextOrder, id)
	maps.DeleteFunc(q.state.items, func(_ int, it models.TodoItem) bool { return it.TodoListID == id })
	return nil
}

func (q *memQueries) ListListsByOwner(_ context.Context, ownerID int) ([]models.TodoList, error) {
	var lists []models.TodoList
	for _, l := range q.state.lists {
		if l.OwnerID == ownerID {
			lists = append(lists, l)
		}
	}
	slices.SortFunc(lists, func(a, b models.TodoList) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return lists, nil
}

// Todo items

func (q *memQueries) NextItemOrder(_ context.Context, listID int) (int, error) {
	if _, ok := q.state.lists[listID]; !ok {
		return 0, notFoundErr("todo list")
	}
	next := max(q.state.nextOrder[listID], 1)
	for _, it := range q.state.items {
		if it.TodoListID == listID && it.Order >= next {
			next = it.Order + 1
		}
	}
	q.state.nextOrder[listID] = next + 1
	return next, nil
}

func (q *memQueries) CreateItem(_ context.Context, it *models.TodoItem) error {
	if _, ok := q.state.lists[it.TodoListID]; !ok {
		return notFoundErr("todo list")
	}
	it.ID = q.state.nextID()
	q.state.items[it.ID] = *it
	return nil
}

func (q *memQueries) GetItem(_ context.Context, listID, itemID int) (*models.TodoItem, error) {
	it, ok := q.state.items[itemID]
	if !ok || it.TodoListID != listID {
		return nil, notFoundErr("todo item")
	}
	return &it, nil
}

func (q *memQueries) UpdateItem(_ context.Context, it *models.TodoItem) error {
	existing, ok := q.state.items[it.ID]
	if !ok || existing.TodoListID != it.TodoListID {
		return notFoundErr("todo item")
	}
	q.state.items[it.ID] = *it
	return nil
}

func (q *memQueries) DeleteItem(_ context.Context, listID, itemID int) error {
	it, ok := q.state.items[itemID]
	if !ok || it.TodoListID != listID {
		return notFoundErr("todo item")
	}
	delete(q.state.items, itemID)
	return nil
}

func (q *memQueries) ListItemsByList(_ context.Context, listID int) ([]models.TodoItem, error) {
	var items []models.TodoItem
	for _, it := range q.state.items {
		if it.TodoListID == listID {
			items = append(items, it)
		}
	}
	slices.SortFunc(items, func(a, b models.TodoItem) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
	})
	return items, nil
}

func (q *memQueries) ListItemsByOwners(_ context.Context, ownerIDs []int) ([]models.OwnedItem, error) {
	var items []models.OwnedItem
	for _, it := range q.state.items {
		l, ok := q.state.lists[it.TodoListID]
		if ok && slices.Contains(ownerIDs, l.OwnerID) {
			items = append(items, models.OwnedItem{TodoItem: it, OwnerID: l.OwnerID})
		}
	}
	slices.SortFunc(items, func(a, b models.OwnedItem) int { return cmp.Compare(a.ID, b.ID) })
	return items, nil
}

// Activities

func (q *memQueries) CreateActivity(_ context.Context, a *models.Activity) error {
	if _, ok := q.state.users[a.UserID]; !ok {
		return notFoundErr("user")
	}
	a.ID = q.state.nextID()
	q.state.activities[a.ID] = *a
	return nil
}

func (q *memQueries) ListActivitiesByUsers(_ context.Context, userIDs []int, limit int) ([]models.ActivityEntry, error) {
	var entries []models.ActivityEntry
	for _, a := range q.state.activities {
		if !slices.Contains(userIDs, a.UserID) {
			continue
		}
		u := q.state.users[a.UserID]
		entries = append(entries, models.ActivityEntry{Activity: a, Username: u.Username, ColorCode: u.ColorCode})
	}
	slices.SortFunc(entries, func(a, b models.ActivityEntry) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (q *memQueries) CountActivitiesByUsers(_ context.Context, userIDs []int) (int, error) {
	n := 0
	for _, a := range q.state.activities {
		if slices.Contains(userIDs, a.UserID) {
			n++
		}
	}
	return n, nil
}

// Refresh tokens

func (q *memQueries) CreateRefreshToken(_ context.Context, t *models.RefreshToken) error {
	t.ID = q.state.nextID()
	q.state.tokens[t.ID] = *t
	return nil
}

func (q *memQueries) GetRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	for _, t := range q.state.tokens {
		if t.Token == token {
			return &t, nil
		}
	}
	return nil, notFoundErr("refresh token")
}

func (q *memQueries) RevokeRefreshToken(_ context.Context, id int) error {
	if t, ok := q.state.tokens[id]; ok {
		t.IsRevoked = true
		q.state.tokens[id] = t
	}
	return nil
}

func (q *memQueries) RevokeUserRefreshTokens(_ context.Context, userID int) error {
	for id, t := range q.state.tokens {
		if t.UserID == userID && !t.IsRevoked {
			t.IsRevoked = true
			q.state.tokens[id] = t
		}
	}
	return nil
}

func (q *memQueries) Savepoint(_ context.Context, fn func(q Queries) error) error {
	saved := q.state.clone()
	if err := fn(q); err != nil {
		q.state = saved
		return err
	}
	return nil
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Queries = (*memQueries)(nil)
)
