package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/mcq-practice/backend/internal/database"
	"github.com/mcq-practice/backend/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// Users is the account storage the handler needs.
type Users interface {
	Create(ctx context.Context, u models.User) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByID(ctx context.Context, id int64) (*models.User, error)
	UpdateClassLevel(ctx context.Context, id int64, classLevel string) (*models.User, error)
}

// Store keeps users in Postgres.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const userColumns = `id, email, name, username, password, role, class_level, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Username, &u.Password, &role, &u.ClassLevel, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// Create inserts a user with a generated username, retrying on username
// collisions. Password must already be hashed.
func (s *Store) Create(ctx context.Context, u models.User) (*models.User, error) {
	now := time.Now()
	username := database.GenerateUsername(u.Name)

	for attempt := 0; attempt < 5; attempt++ {
		row := s.db.QueryRowContext(ctx,
			`INSERT INTO users (email, name, username, password, role, class_level, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING `+userColumns,
			u.Email, u.Name, username, u.Password, string(u.Role), u.ClassLevel, now, now,
		)
		created, err := scanUser(row)
		if err == nil {
			return created, nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "username") {
				username = database.GenerateUsername(u.Name)
				continue
			}
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return nil, fmt.Errorf("insert user: no free username for %q", u.Name)
}

func (s *Store) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *Store) ByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) UpdateClassLevel(ctx context.Context, id int64, classLevel string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`UPDATE users SET class_level = $1, updated_at = $2 WHERE id = $3 RETURNING `+userColumns,
		classLevel, time.Now(), id,
	))
}
