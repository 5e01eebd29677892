package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/Nayan-Shrivastava/task-management-app/internal/models"
)

// Fields a client may send in a profile patch. Anything else is rejected
// before any mutation happens.
var allowedUserFields = map[string]bool{
	"name":     true,
	"email":    true,
	"password": true,
	"age":      true,
}

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// NormalizeEmail lowercases and trims an email address before any lookup
// or write, so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckPassword enforces the signup password policy.
func CheckPassword(password string) error {
	if len(password) < 7 {
		return NewValidationError("password must be at least 7 characters")
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return NewValidationError(`password cannot contain "password"`)
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && strings.Contains(email[at:], ".")
}

func (s *UserStore) Create(ctx context.Context, name, email, password string, age int) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name is required")
	}
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return nil, NewValidationError("invalid email format")
	}
	if err := CheckPassword(password); err != nil {
		return nil, err
	}
	if age < 0 {
		return nil, NewValidationError("age must be a non-negative number")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{Name: name, Email: email, Age: age, Tokens: []string{}}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, password, age)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, password, created_at, updated_at`,
		name, email, string(hashed), age,
	).Scan(&user.ID, &user.Password, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, NewValidationError("email already in use")
		}
		return nil, err
	}
	return user, nil
}

func (s *UserStore) FindByCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.findByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserStore) GetByID(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password, age, tokens, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Age,
		pq.Array(&user.Tokens), &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Update applies a partial patch. Keys outside the allowed set fail the
// whole request before anything is written; a new password is re-hashed.
func (s *UserStore) Update(ctx context.Context, id int, patch map[string]json.RawMessage) (*models.User, error) {
	if len(patch) == 0 {
		return nil, NewValidationError("no fields to update")
	}
	for field := range patch {
		if !allowedUserFields[field] {
			return nil, NewValidationError("invalid update field: " + field)
		}
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, ok := patch["name"]; ok {
		if err := json.Unmarshal(raw, &user.Name); err != nil {
			return nil, NewValidationError("name must be a string")
		}
		if strings.TrimSpace(user.Name) == "" {
			return nil, NewValidationError("name is required")
		}
	}
	if raw, ok := patch["email"]; ok {
		if err := json.Unmarshal(raw, &user.Email); err != nil {
			return nil, NewValidationError("email must be a string")
		}
		user.Email = NormalizeEmail(user.Email)
		if !validEmail(user.Email) {
			return nil, NewValidationError("invalid email format")
		}
	}
	if raw, ok := patch["age"]; ok {
		if err := json.Unmarshal(raw, &user.Age); err != nil {
			return nil, NewValidationError("age must be a number")
		}
		if user.Age < 0 {
			return nil, NewValidationError("age must be a non-negative number")
		}
	}
	if raw, ok := patch["password"]; ok {
		var plain string
		if err := json.Unmarshal(raw, &plain); err != nil {
			return nil, NewValidationError("password must be a string")
		}
		if err := CheckPassword(plain); err != nil {
			return nil, err
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}

	err = s.db.QueryRowContext(ctx,
		`UPDATE users
		 SET name = $1, email = $2, password = $3, age = $4, updated_at = NOW()
		 WHERE id = $5
		 RETURNING updated_at`,
		user.Name, user.Email, user.Password, user.Age, id,
	).Scan(&user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, NewValidationError("email already in use")
		}
		return nil, err
	}
	return user, nil
}

// Remove deletes the account and, through the foreign key cascade, every
// task the user owns. The deleted record is returned for the response
// body and the cancellation email.
func (s *UserStore) Remove(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM users WHERE id = $1
		 RETURNING id, name, email, age, created_at, updated_at`, id,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Age, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// AppendToken records a newly issued token at the end of the user's list;
// insertion order is issuance order.
func (s *UserStore) AppendToken(ctx context.Context, id int, token string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET tokens = array_append(tokens, $1) WHERE id = $2`, token, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// RemoveToken revokes exactly one token string.
func (s *UserStore) RemoveToken(ctx context.Context, id int, token string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET tokens = array_remove(tokens, $1) WHERE id = $2`, token, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// ClearTokens logs the user out of every session.
func (s *UserStore) ClearTokens(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET tokens = '{}' WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *UserStore) SetAvatar(ctx context.Context, id int, avatar []byte) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET avatar = $1, updated_at = NOW() WHERE id = $2`, avatar, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *UserStore) Avatar(ctx context.Context, id int) ([]byte, error) {
	var avatar []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT avatar FROM users WHERE id = $1`, id).Scan(&avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(avatar) == 0 {
		return nil, ErrNotFound
	}
	return avatar, nil
}

func (s *UserStore) DeleteAvatar(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET avatar = NULL, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *UserStore) findByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password, age, tokens, created_at, updated_at
		 FROM users WHERE email = $1`, email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Age,
		pq.Array(&user.Tokens), &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
