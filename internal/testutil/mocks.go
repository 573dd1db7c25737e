// Package testutil provides in-memory repository and storage doubles.
package testutil

import (
	"alcyxob/bmi-tracker/internal/domain"
	"alcyxob/bmi-tracker/internal/repository"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// clock hands out strictly increasing timestamps so newest-first ordering
// is deterministic within a test.
type clock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := time.Now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}

// MockUserRepository is an in-memory repository.UserRepository.
type MockUserRepository struct {
	mu          sync.RWMutex
	Users       map[primitive.ObjectID]*domain.User
	EmailIndex  map[string]primitive.ObjectID
	CreateError error
	GetError    error
	clock       clock
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users:      make(map[primitive.ObjectID]*domain.User),
		EmailIndex: make(map[string]primitive.ObjectID),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, u *domain.User) (primitive.ObjectID, error) {
	if m.CreateError != nil {
		return primitive.NilObjectID, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.EmailIndex[u.Email]; ok {
		return primitive.NilObjectID, repository.ErrDuplicateEmail
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = m.clock.now()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	m.Users[u.ID] = &stored
	m.EmailIndex[u.Email] = u.ID
	return u.ID, nil
}

// AddUser stores a user with the given name and email and returns it.
func (m *MockUserRepository) AddUser(name, email string) *domain.User {
	u := &domain.User{Name: name, Email: email, PasswordHash: "x", Role: domain.RoleUser}
	if _, err := m.Create(context.Background(), u); err != nil {
		panic(fmt.Sprintf("testutil: add user: %v", err))
	}
	return u
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.EmailIndex[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := *m.Users[id]
	return &u, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.User{}
	for _, id := range ids {
		if u, ok := m.Users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *MockUserRepository) List(ctx context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.User, 0, len(m.Users))
	for _, u := range m.Users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.Users)), nil
}

// MockBMIRecordRepository is an in-memory repository.BMIRecordRepository.
// Users, when set, backs CountUsersWithRecords the way the users lookup does.
type MockBMIRecordRepository struct {
	mu          sync.RWMutex
	Records     []domain.BMIRecord
	Users       *MockUserRepository
	CreateError error
	clock       clock
}

func NewMockBMIRecordRepository(users *MockUserRepository) *MockBMIRecordRepository {
	return &MockBMIRecordRepository{Users: users}
}

func (m *MockBMIRecordRepository) Create(ctx context.Context, r *domain.BMIRecord) (primitive.ObjectID, error) {
	if m.CreateError != nil {
		return primitive.NilObjectID, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = primitive.NewObjectID()
	r.CreatedAt = m.clock.now()
	m.Records = append(m.Records, *r)
	return r.ID, nil
}

func (m *MockBMIRecordRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.BMIRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.BMIRecord{}
	for i := len(m.Records) - 1; i >= 0; i-- {
		r := m.Records[i]
		if r.UserID != nil && *r.UserID == userID {
			out = append(out, r)
			if limit > 0 && int64(len(out)) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockBMIRecordRepository) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.Records)), nil
}

func (m *MockBMIRecordRepository) CountUsersWithRecords(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owners := make(map[primitive.ObjectID]struct{})
	for _, r := range m.Records {
		if r.UserID == nil {
			continue
		}
		if m.Users != nil {
			if _, err := m.Users.GetByID(ctx, *r.UserID); err != nil {
				continue
			}
		}
		owners[*r.UserID] = struct{}{}
	}
	return int64(len(owners)), nil
}

func (m *MockBMIRecordRepository) AverageBMI(ctx context.Context) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.Records) == 0 {
		return 0, false, nil
	}
	var sum float64
	for _, r := range m.Records {
		sum += r.BMI
	}
	return sum / float64(len(m.Records)), true, nil
}

// MockDietPlanRepository is an in-memory repository.DietPlanRepository.
// CreateActive is atomic under the repository lock.
type MockDietPlanRepository struct {
	mu          sync.RWMutex
	Plans       map[primitive.ObjectID]*domain.DietPlan
	CreateError error
	clock       clock
}

func NewMockDietPlanRepository() *MockDietPlanRepository {
	return &MockDietPlanRepository{Plans: make(map[primitive.ObjectID]*domain.DietPlan)}
}

func (m *MockDietPlanRepository) CreateActive(ctx context.Context, p *domain.DietPlan) (primitive.ObjectID, error) {
	if m.CreateError != nil {
		return primitive.NilObjectID, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.now()
	for _, existing := range m.Plans {
		if existing.UserID == p.UserID && existing.IsActive {
			existing.IsActive = false
			existing.UpdatedAt = now
		}
	}
	p.ID = primitive.NewObjectID()
	p.IsActive = true
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Tips == nil {
		p.Tips = []string{}
	}
	stored := *p
	stored.User = nil
	m.Plans[p.ID] = &stored
	return p.ID, nil
}

func (m *MockDietPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DietPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.Plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockDietPlanRepository) GetActiveByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.DietPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.Plans {
		if p.UserID == userID && p.IsActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDietPlanRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.DietPlan, error) {
	return m.filter(func(p *domain.DietPlan) bool { return p.UserID == userID }), nil
}

func (m *MockDietPlanRepository) List(ctx context.Context) ([]domain.DietPlan, error) {
	return m.filter(func(*domain.DietPlan) bool { return true }), nil
}

func (m *MockDietPlanRepository) filter(keep func(*domain.DietPlan) bool) []domain.DietPlan {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.DietPlan{}
	for _, p := range m.Plans {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Update keeps ownership, activation and creation time of the stored plan.
func (m *MockDietPlanRepository) Update(ctx context.Context, p *domain.DietPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.Plans[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := *p
	updated.UserID = stored.UserID
	updated.InstructorID = stored.InstructorID
	updated.IsActive = stored.IsActive
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = m.clock.now()
	updated.User = nil
	p.UpdatedAt = updated.UpdatedAt
	m.Plans[p.ID] = &updated
	return nil
}

func (m *MockDietPlanRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsActive = false
	p.UpdatedAt = m.clock.now()
	return nil
}

// ActiveCount returns how many active plans userID has.
func (m *MockDietPlanRepository) ActiveCount(userID primitive.ObjectID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, p := range m.Plans {
		if p.UserID == userID && p.IsActive {
			n++
		}
	}
	return n
}

// MockStorage keeps uploaded objects in memory.
type MockStorage struct {
	mu          sync.Mutex
	Objects     map[string][]byte
	ContentType map[string]string
	PutError    error
}

func NewMockStorage() *MockStorage {
	return &MockStorage{Objects: make(map[string][]byte), ContentType: make(map[string]string)}
}

func (m *MockStorage) PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if m.PutError != nil {
		return m.PutError
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	if int64(buf.Len()) != size {
		return fmt.Errorf("size mismatch: got %d, declared %d", buf.Len(), size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = buf.Bytes()
	m.ContentType[key] = contentType
	return nil
}

func (m *MockStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Objects[key]; !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	return fmt.Sprintf("https://storage.test/%s?expires=%d", key, int(expires.Seconds())), nil
}
