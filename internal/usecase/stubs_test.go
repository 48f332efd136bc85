package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vyhuholl/test-backend/internal/core/domain"
	"github.com/vyhuholl/test-backend/internal/core/port"
	"github.com/vyhuholl/test-backend/internal/repository"
)

// memUserRepo is an in-memory port.UserRepository used across usecase tests.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUserRepo(users ...domain.User) *memUserRepo {
	repo := &memUserRepo{users: make(map[string]domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *memUserRepo) add(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

func (r *memUserRepo) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrConflict
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		copied := user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			copied := user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) Update(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	stored := r.users[user.ID]
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.MiddleName = user.MiddleName
	stored.UpdatedAt = user.UpdatedAt
	r.users[user.ID] = stored
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = changedAt
	r.users[id] = user
	return nil
}

func (r *memUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.LastLoginAt = &at
	r.users[id] = user
	return nil
}

func (r *memUserRepo) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsActive = false
	r.users[id] = user
	return nil
}

func (r *memUserRepo) List(_ context.Context, filter port.UserFilter) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := r.matching(filter)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []domain.User{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *memUserRepo) Count(_ context.Context, filter port.UserFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matching(filter)), nil
}

// matching applies the active-state filter with a stable order. Callers
// must hold the mutex.
func (r *memUserRepo) matching(filter port.UserFilter) []domain.User {
	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		if filter.IsActive != nil && user.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// memRevocationStore is an in-memory port.RevocationStore.
type memRevocationStore struct {
	mu      sync.Mutex
	entries map[string]domain.RevokedToken
	failing bool
}

func newMemRevocationStore() *memRevocationStore {
	return &memRevocationStore{entries: make(map[string]domain.RevokedToken)}
}

func (s *memRevocationStore) Revoke(_ context.Context, entry domain.RevokedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errStoreDown
	}
	if _, ok := s.entries[entry.Fingerprint]; ok {
		return nil
	}
	s.entries[entry.Fingerprint] = entry
	return nil
}

func (s *memRevocationStore) IsRevoked(_ context.Context, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return false, errStoreDown
	}
	_, ok := s.entries[fingerprint]
	return ok, nil
}

func (s *memRevocationStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, errStoreDown
	}
	removed := 0
	for fingerprint, entry := range s.entries {
		if entry.IsExpired(now) {
			delete(s.entries, fingerprint)
			removed++
		}
	}
	return removed, nil
}

// memRateLimitStore is an in-memory port.RateLimitStore mirroring the
// Redis sorted-set semantics.
type memRateLimitStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newMemRateLimitStore() *memRateLimitStore {
	return &memRateLimitStore{attempts: make(map[string][]time.Time)}
}

func (s *memRateLimitStore) TryAcquire(_ context.Context, identifier string, window time.Duration, at time.Time, limit int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	threshold := at.Add(-window)
	kept := s.attempts[identifier][:0]
	for _, recorded := range s.attempts[identifier] {
		if recorded.After(threshold) {
			kept = append(kept, recorded)
		}
	}
	if len(kept) >= limit {
		s.attempts[identifier] = kept
		return false, nil
	}
	s.attempts[identifier] = append(kept, at)
	return true, nil
}

// recorded returns how many attempts remain inside the window, for
// asserting on the store state after a run of reservations.
func (s *memRateLimitStore) recorded(identifier string, window time.Duration, reference time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	threshold := reference.Add(-window)
	count := 0
	for _, at := range s.attempts[identifier] {
		if at.After(threshold) && !at.After(reference) {
			count++
		}
	}
	return count
}

func (s *memRateLimitStore) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	threshold := reference.Add(-window)
	inWindow := make([]time.Time, 0)
	for _, at := range s.attempts[identifier] {
		if at.After(threshold) && !at.After(reference) {
			inWindow = append(inWindow, at)
		}
	}
	if len(inWindow) == 0 {
		return time.Time{}, false, nil
	}
	sort.Slice(inWindow, func(i, j int) bool { return inWindow[i].Before(inWindow[j]) })
	return inWindow[0], true, nil
}

// memRoleRepo is an in-memory port.RoleRepository.
type memRoleRepo struct {
	mu          sync.Mutex
	roles       map[string]domain.Role
	assignments map[string][]domain.RoleAssignment
}

func newMemRoleRepo(roles ...domain.Role) *memRoleRepo {
	repo := &memRoleRepo{
		roles:       make(map[string]domain.Role),
		assignments: make(map[string][]domain.RoleAssignment),
	}
	for _, role := range roles {
		repo.roles[role.ID] = role
	}
	return repo
}

func (r *memRoleRepo) Create(_ context.Context, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roles {
		if existing.Name == role.Name {
			return repository.ErrConflict
		}
	}
	r.roles[role.ID] = role
	return nil
}

func (r *memRoleRepo) List(_ context.Context) ([]domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRoleRepo) GetByID(_ context.Context, id string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role, ok := r.roles[id]; ok {
		copied := role
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memRoleRepo) GetByName(_ context.Context, name string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.roles {
		if role.Name == name {
			copied := role
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRoleRepo) UpdateDescription(_ context.Context, id string, description *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return repository.ErrNotFound
	}
	role.Description = description
	r.roles[id] = role
	return nil
}

func (r *memRoleRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.roles, id)
	return nil
}

func (r *memRoleRepo) AssignToUser(_ context.Context, assignment domain.RoleAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.assignments[assignment.UserID] {
		if existing.RoleID == assignment.RoleID {
			return nil
		}
	}
	r.assignments[assignment.UserID] = append(r.assignments[assignment.UserID], assignment)
	return nil
}

func (r *memRoleRepo) RemoveFromUser(_ context.Context, userID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.assignments[userID][:0]
	found := false
	for _, assignment := range r.assignments[userID] {
		if assignment.RoleID == roleID {
			found = true
			continue
		}
		kept = append(kept, assignment)
	}
	if !found {
		return repository.ErrNotFound
	}
	r.assignments[userID] = kept
	return nil
}

func (r *memRoleRepo) ListByUser(_ context.Context, userID string) ([]domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Role, 0)
	for _, assignment := range r.assignments[userID] {
		if role, ok := r.roles[assignment.RoleID]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *memRoleRepo) ListAssignments(_ context.Context, userID string) ([]domain.RoleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RoleAssignment(nil), r.assignments[userID]...), nil
}

func (r *memRoleRepo) CountAssignments(_ context.Context, roleID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, assignments := range r.assignments {
		for _, assignment := range assignments {
			if assignment.RoleID == roleID {
				count++
			}
		}
	}
	return count, nil
}

// memElementRepo is an in-memory port.ElementRepository.
type memElementRepo struct {
	mu       sync.Mutex
	elements map[string]domain.BusinessElement
}

func newMemElementRepo(elements ...domain.BusinessElement) *memElementRepo {
	repo := &memElementRepo{elements: make(map[string]domain.BusinessElement)}
	for _, element := range elements {
		repo.elements[element.ID] = element
	}
	return repo
}

func (r *memElementRepo) Create(_ context.Context, element domain.BusinessElement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.elements {
		if existing.Name == element.Name {
			return repository.ErrConflict
		}
	}
	r.elements[element.ID] = element
	return nil
}

func (r *memElementRepo) List(_ context.Context) ([]domain.BusinessElement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.BusinessElement, 0, len(r.elements))
	for _, element := range r.elements {
		out = append(out, element)
	}
	return out, nil
}

func (r *memElementRepo) GetByID(_ context.Context, id string) (*domain.BusinessElement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if element, ok := r.elements[id]; ok {
		copied := element
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memElementRepo) GetByName(_ context.Context, name string) (*domain.BusinessElement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, element := range r.elements {
		if element.Name == name {
			copied := element
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

// memRuleRepo is an in-memory port.RuleRepository. Element names resolve
// through the provided element repo, mirroring the SQL join.
type memRuleRepo struct {
	mu       sync.Mutex
	rules    map[string]domain.AccessRule
	elements *memElementRepo
}

func newMemRuleRepo(elements *memElementRepo, rules ...domain.AccessRule) *memRuleRepo {
	repo := &memRuleRepo{rules: make(map[string]domain.AccessRule), elements: elements}
	for _, rule := range rules {
		repo.rules[rule.ID] = rule
	}
	return repo
}

func (r *memRuleRepo) Create(_ context.Context, rule domain.AccessRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rules {
		if existing.RoleID == rule.RoleID && existing.ElementID == rule.ElementID {
			return repository.ErrConflict
		}
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *memRuleRepo) Update(_ context.Context, rule domain.AccessRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return repository.ErrNotFound
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *memRuleRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rules, id)
	return nil
}

func (r *memRuleRepo) GetByID(_ context.Context, id string) (*domain.AccessRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule, ok := r.rules[id]; ok {
		copied := rule
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memRuleRepo) List(_ context.Context, filter port.RuleFilter) ([]domain.AccessRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AccessRule, 0)
	for _, rule := range r.rules {
		if filter.RoleID != "" && rule.RoleID != filter.RoleID {
			continue
		}
		if filter.ElementID != "" && rule.ElementID != filter.ElementID {
			continue
		}
		out = append(out, rule)
	}
	return out, nil
}

func (r *memRuleRepo) ListForRoles(ctx context.Context, roleIDs []string, elementName string) ([]domain.AccessRule, error) {
	element, err := r.elements.GetByName(ctx, elementName)
	if err != nil {
		return nil, nil
	}

	roleSet := make(map[string]bool, len(roleIDs))
	for _, id := range roleIDs {
		roleSet[id] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AccessRule, 0)
	for _, rule := range r.rules {
		if rule.ElementID == element.ID && roleSet[rule.RoleID] {
			out = append(out, rule)
		}
	}
	return out, nil
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu                sync.Mutex
	logins            []domain.UserLoggedInEvent
	revocations       []domain.TokenRevokedEvent
	deactivations     []domain.UserDeactivatedEvent
	assignmentChanges []domain.RoleAssignmentChangedEvent
}

func (p *recordingPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, event)
	return nil
}

func (p *recordingPublisher) PublishTokenRevoked(_ context.Context, event domain.TokenRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revocations = append(p.revocations, event)
	return nil
}

func (p *recordingPublisher) PublishUserDeactivated(_ context.Context, event domain.UserDeactivatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deactivations = append(p.deactivations, event)
	return nil
}

func (p *recordingPublisher) PublishRoleAssignmentChanged(_ context.Context, event domain.RoleAssignmentChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assignmentChanges = append(p.assignmentChanges, event)
	return nil
}

// memAccountCloser applies the soft delete and revocation against the
// in-memory stores, mimicking the transactional closer.
type memAccountCloser struct {
	users       *memUserRepo
	revocations *memRevocationStore
}

func (c *memAccountCloser) CloseAccount(ctx context.Context, userID string, entry domain.RevokedToken) error {
	if err := c.users.SoftDelete(ctx, userID); err != nil {
		return err
	}
	return c.revocations.Revoke(ctx, entry)
}

var errStoreDown = errStore("store unavailable")

type errStore string

func (e errStore) Error() string { return string(e) }
