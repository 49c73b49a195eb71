package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type memoryUserRepository struct {
	db *MemoryDB
}

func NewMemoryUserRepository(db *MemoryDB) UserRepository {
	return &memoryUserRepository{db: db}
}

func (r *memoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, exists := r.db.users[user.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	if err := r.db.checkUserUnique(user); err != nil {
		return err
	}
	if user.Status == 0 {
		user.Status = model.UserStatusActive
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.db.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.findUser(func(u *model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *memoryUserRepository) GetByInstitutionalID(_ context.Context, institutionalID string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.findUser(func(u *model.User) bool {
		return u.InstitutionalID != nil && *u.InstitutionalID == institutionalID
	})
}

func (r *memoryUserRepository) GetByInstitutionalEmail(_ context.Context, email string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.findUser(func(u *model.User) bool { return sameFold(u.InstitutionalEmail, email) })
}

func (r *memoryUserRepository) CompleteOnboarding(_ context.Context, id uuid.UUID, profile OnboardingProfile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	instID := profile.InstitutionalID
	u.FirstName = profile.FirstName
	u.LastName = profile.LastName
	u.InstitutionalID = &instID
	u.OnboardingComplete = true
	if err := r.db.checkUserUnique(&u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()
	r.db.users[id] = u
	return nil
}

func (r *memoryUserRepository) TopByPoints(_ context.Context, limit int) ([]model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	users := make([]model.User, 0, len(r.db.users))
	for _, u := range r.db.users {
		if u.OnboardingComplete {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Points != users[j].Points {
			return users[i].Points > users[j].Points
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}
