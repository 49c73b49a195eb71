package repository

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

// MemoryDB is a single-process stand-in for Postgres. All memory repositories
// built on one MemoryDB share its lock, so each repository call is atomic
// across tables the way the Postgres transactions are. Unique keys and
// errors mirror the Postgres schema (gorm.ErrRecordNotFound,
// gorm.ErrDuplicatedKey).
type MemoryDB struct {
	mu      sync.Mutex
	users   map[uuid.UUID]model.User
	pending map[uuid.UUID]model.PendingVerification
	events  map[uuid.UUID]model.Event
	codes   map[uuid.UUID]model.AttendanceCode
	records map[uuid.UUID]model.AttendanceRecord
	tokens  map[string]model.LinkingToken
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:   make(map[uuid.UUID]model.User),
		pending: make(map[uuid.UUID]model.PendingVerification),
		events:  make(map[uuid.UUID]model.Event),
		codes:   make(map[uuid.UUID]model.AttendanceCode),
		records: make(map[uuid.UUID]model.AttendanceRecord),
		tokens:  make(map[string]model.LinkingToken),
	}
}

func sameFold(a *string, b string) bool {
	return a != nil && strings.EqualFold(*a, b)
}

// checkUserUnique enforces the users unique indexes for u. Caller holds mu.
func (db *MemoryDB) checkUserUnique(u *model.User) error {
	for id, other := range db.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) {
			return gorm.ErrDuplicatedKey
		}
		if u.InstitutionalID != nil && other.InstitutionalID != nil && *other.InstitutionalID == *u.InstitutionalID {
			return gorm.ErrDuplicatedKey
		}
		if u.InstitutionalEmail != nil && sameFold(other.InstitutionalEmail, *u.InstitutionalEmail) {
			return gorm.ErrDuplicatedKey
		}
	}
	return nil
}

// findUser scans users with pred. Caller holds mu.
func (db *MemoryDB) findUser(pred func(*model.User) bool) (*model.User, error) {
	for _, u := range db.users {
		if pred(&u) {
			found := u
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// deleteIdentity removes a user and its pending verification. Caller holds mu.
func (db *MemoryDB) deleteIdentity(id uuid.UUID) {
	delete(db.pending, id)
	delete(db.users, id)
}
