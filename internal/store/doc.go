// Package store provides persistent storage for the gradebook.
//
// # Architecture
//
// SQLStore is the single implementation. It runs on SQLite through
// modernc.org/sqlite (the default, no cgo) or on PostgreSQL through the pgx
// database/sql driver. All queries are written with ? placeholders and
// passed through sqlx Rebind so the same SQL serves both drivers.
//
// Writes go through withTx, which holds one process-wide writer lock for the
// whole transaction and rolls back on every error path. Reads use the
// connection pool directly.
//
// # Data Models
//
//   - School: also the manager's credential record, so a manager's account
//     id is the school id
//   - Grade, Class: the school hierarchy
//   - Teacher, Student: credential records
//   - Subject: a class subject with a teacher and a coefficient
//   - ReportPeriod: a grading window students only see once approved
//   - Score: unique per (student, subject, period); saves are upserts
//   - user_contacts: the chat address reminders are delivered to
//   - AuditEntry: append-only record of password and contact changes
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrInvalidCredentials: Unknown username or wrong password
//   - ErrUnknownRole: Role has no credential table
//
// Listing methods return an empty slice rather than ErrNotFound.
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewSQLiteStore with a path under t.TempDir() for tests with real SQLite.
package store
