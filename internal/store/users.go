package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type User struct {
	ID       int64
	Email    string
	FullName string

	// Password is the bcrypt hash, never the plaintext.
	Password string

	Active bool
}

type Department struct {
	ID      int64
	Acronym string
	Name    string
}

func (s *Store) CreateUser(ctx context.Context, user *User) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, full_name, password, active) VALUES (?, ?, ?, ?)`,
		user.Email, user.FullName, user.Password, user.Active,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted user id: %w", err)
	}

	return id, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, password, active FROM users WHERE id = ?`, id)

	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, password, active FROM users WHERE email = ?`, email)

	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var user User

	err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.Password, &user.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return &user, nil
}

// ListUsers returns the members of the given department, or every user when
// the acronym is empty.
func (s *Store) ListUsers(ctx context.Context, department string) ([]User, error) {
	query := `SELECT id, email, full_name, password, active FROM users ORDER BY id`
	args := []any{}

	if department != "" {
		query = `SELECT u.id, u.email, u.full_name, u.password, u.active
			FROM users u
			JOIN department_members m ON m.user_id = u.id
			JOIN departments d ON d.id = m.department_id
			WHERE d.acronym = ?
			ORDER BY u.id`
		args = append(args, department)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []User

	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Email, &user.FullName, &user.Password, &user.Active); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Store) CreateDepartment(ctx context.Context, dept *Department) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO departments (acronym, name) VALUES (?, ?)`, dept.Acronym, dept.Name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert department: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted department id: %w", err)
	}

	return id, nil
}

func (s *Store) GetDepartmentByAcronym(ctx context.Context, acronym string) (*Department, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, acronym, name FROM departments WHERE acronym = ?`, acronym)

	var dept Department

	err := row.Scan(&dept.ID, &dept.Acronym, &dept.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan department: %w", err)
	}

	return &dept, nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, acronym, name FROM departments ORDER BY acronym`)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var depts []Department

	for rows.Next() {
		var dept Department
		if err := rows.Scan(&dept.ID, &dept.Acronym, &dept.Name); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}

		depts = append(depts, dept)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return depts, nil
}

func (s *Store) AddUserToDepartment(ctx context.Context, userID, departmentID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO department_members (user_id, department_id) VALUES (?, ?)`,
		userID, departmentID)
	if err != nil {
		return fmt.Errorf("failed to add user to department: %w", err)
	}

	return nil
}
