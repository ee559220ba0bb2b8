// ABOUTME: Credential checks, password changes and contact registry for all three roles
// ABOUTME: Passwords are stored as bcrypt hashes; contacts map (role, user id) to a chat address

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor for new password hashes. Tests lower it.
var bcryptCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckLogin verifies a username and password against the role's table.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *SQLStore) CheckLogin(ctx context.Context, role Role, username, password string) (*Account, error) {
	table, err := role.table()
	if err != nil {
		return nil, err
	}

	var row struct {
		ID       int64          `db:"id"`
		Name     string         `db:"name"`
		Password sql.NullString `db:"password"`
	}
	// A school row stands for its manager; fall back to the school name
	// when the roster left manager_name empty.
	name := "name"
	if role == RoleManager {
		name = "COALESCE(NULLIF(manager_name, ''), name)"
	}
	query := s.db.Rebind(fmt.Sprintf("SELECT id, %s AS name, password FROM %s WHERE username = ?", name, table))
	if err := s.db.GetContext(ctx, &row, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up %s account: %w", role, err)
	}

	if !row.Password.Valid {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.Password.String), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Account{Role: role, ID: row.ID, Name: row.Name, Username: username}, nil
}

// ChangePassword replaces the password of an account and records contact as
// the address reminders for this account are delivered to.
func (s *SQLStore) ChangePassword(ctx context.Context, role Role, userID int64, newPassword, contact string) error {
	table, err := role.table()
	if err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(fmt.Sprintf("UPDATE %s SET password = ? WHERE id = ?", table))
		res, err := tx.ExecContext(ctx, query, hash, userID)
		if err != nil {
			return fmt.Errorf("updating password: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}

		if contact == "" {
			return nil
		}
		return upsertContact(ctx, tx, role, userID, contact)
	})
}

// RegisterContact records contact for an account without touching its password.
func (s *SQLStore) RegisterContact(ctx context.Context, role Role, userID int64, contact string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return upsertContact(ctx, tx, role, userID, contact)
	})
}

// upsertContact stores contact for the account and audits the change. A
// contact that is already registered is left alone and not audited again.
func upsertContact(ctx context.Context, tx *sqlx.Tx, role Role, userID int64, contact string) error {
	var previous string
	err := tx.GetContext(ctx, &previous,
		tx.Rebind("SELECT contact FROM user_contacts WHERE role = ? AND user_id = ?"), string(role), userID)
	switch {
	case err == nil && previous == contact:
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("reading contact: %w", err)
	}

	now := time.Now().UTC()
	query := tx.Rebind(`
		INSERT INTO user_contacts (role, user_id, contact, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (role, user_id) DO UPDATE
			SET contact = excluded.contact, updated_at = excluded.updated_at
	`)
	if _, err := tx.ExecContext(ctx, query, string(role), userID, contact, timestamp(now)); err != nil {
		return fmt.Errorf("registering contact: %w", err)
	}

	entry := &AuditEntry{
		ActorRole:  role,
		ActorID:    userID,
		Action:     AuditRegisterContact,
		TargetType: "contact",
		TargetID:   contact,
		Timestamp:  now,
	}
	if previous != "" {
		entry.Detail = map[string]any{"previous": previous}
	}
	return insertAudit(ctx, tx, entry)
}

// Contacts returns the registered chat addresses for an account, newest first.
// An account that never registered a contact yields an empty slice.
func (s *SQLStore) Contacts(ctx context.Context, role Role, userID int64) ([]string, error) {
	var contacts []string
	query := s.db.Rebind(`
		SELECT contact FROM user_contacts
		WHERE role = ? AND user_id = ?
		ORDER BY updated_at DESC
	`)
	if err := s.db.SelectContext(ctx, &contacts, query, string(role), userID); err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	if contacts == nil {
		contacts = []string{}
	}
	return contacts, nil
}

// TeacherSchoolID returns the school a teacher belongs to.
func (s *SQLStore) TeacherSchoolID(ctx context.Context, teacherID int64) (int64, error) {
	var schoolID sql.NullInt64
	query := s.db.Rebind("SELECT school_id FROM teachers WHERE id = ?")
	if err := s.db.GetContext(ctx, &schoolID, query, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("looking up teacher school: %w", err)
	}
	if !schoolID.Valid {
		return 0, ErrNotFound
	}
	return schoolID.Int64, nil
}

// StudentSchoolID returns the school a student belongs to through their class and grade.
func (s *SQLStore) StudentSchoolID(ctx context.Context, studentID int64) (int64, error) {
	var schoolID int64
	query := s.db.Rebind(`
		SELECT g.school_id
		FROM students s
		JOIN classes c ON s.class_id = c.id
		JOIN grades g ON c.grade_id = g.id
		WHERE s.id = ?
	`)
	if err := s.db.GetContext(ctx, &schoolID, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("looking up student school: %w", err)
	}
	return schoolID, nil
}
