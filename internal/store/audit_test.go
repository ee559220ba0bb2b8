// ABOUTME: Tests for audit log store operations
// ABOUTME: Covers Append and List with filtering for the audit_log table

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditStore_Append(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry := &AuditEntry{
		ActorRole:  RoleStudent,
		ActorID:    7,
		Action:     AuditChangePassword,
		TargetType: "account",
		TargetID:   "s1",
		Detail:     map[string]any{"contact": "!room:example.org"},
	}

	err := store.AppendAuditLog(ctx, entry)
	require.NoError(t, err)

	// Should have generated ID and timestamp
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, RoleStudent, entries[0].ActorRole)
	assert.Equal(t, int64(7), entries[0].ActorID)
	assert.Equal(t, "!room:example.org", entries[0].Detail["contact"])
}

func TestAuditStore_Append_RejectsUnknownAction(t *testing.T) {
	store := setupTestStore(t)

	err := store.AppendAuditLog(context.Background(), &AuditEntry{
		ActorRole:  RoleTeacher,
		ActorID:    1,
		Action:     AuditAction("drop_tables"),
		TargetType: "account",
		TargetID:   "t1",
	})
	assert.Error(t, err)
}

func TestAuditStore_List_NoFilter(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	actions := []AuditAction{AuditRegisterContact, AuditChangePassword, AuditRegisterContact}
	for i, action := range actions {
		entry := &AuditEntry{
			ActorRole:  RoleStudent,
			ActorID:    1,
			Action:     action,
			TargetType: "account",
			TargetID:   fmt.Sprintf("target-%d", i),
			Timestamp:  time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.AppendAuditLog(ctx, entry))
	}

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// Should be newest first
	assert.Equal(t, "target-2", entries[0].TargetID)
}

func TestAuditStore_List_BySince(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	baseTime := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		entry := &AuditEntry{
			ActorRole:  RoleStudent,
			ActorID:    1,
			Action:     AuditChangePassword,
			TargetType: "account",
			TargetID:   fmt.Sprintf("target-%d", i),
			Timestamp:  baseTime.Add(time.Duration(i) * 10 * time.Minute),
		}
		require.NoError(t, store.AppendAuditLog(ctx, entry))
	}

	// Filter to entries after 15 minutes in
	since := baseTime.Add(15 * time.Minute)
	entries, err := store.ListAuditLog(ctx, AuditFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, entries, 1) // Only entry at 20 minutes
}

func TestAuditStore_List_ByActor(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	actors := []struct {
		role Role
		id   int64
	}{
		{RoleStudent, 1},
		{RoleTeacher, 1},
		{RoleStudent, 1},
		{RoleStudent, 2},
	}
	for i, a := range actors {
		entry := &AuditEntry{
			ActorRole:  a.role,
			ActorID:    a.id,
			Action:     AuditChangePassword,
			TargetType: "account",
			TargetID:   fmt.Sprintf("target-%d", i),
		}
		require.NoError(t, store.AppendAuditLog(ctx, entry))
	}

	role := RoleStudent
	id := int64(1)
	entries, err := store.ListAuditLog(ctx, AuditFilter{ActorRole: &role, ActorID: &id})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	for _, e := range entries {
		assert.Equal(t, RoleStudent, e.ActorRole)
		assert.Equal(t, int64(1), e.ActorID)
	}
}

func TestAuditStore_List_ByActionAndTarget(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rows := []struct {
		action AuditAction
		target string
	}{
		{AuditChangePassword, "s1"},
		{AuditRegisterContact, "s1"},
		{AuditChangePassword, "s2"},
		{AuditChangePassword, "s1"},
	}
	for _, r := range rows {
		require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
			ActorRole:  RoleStudent,
			ActorID:    1,
			Action:     r.action,
			TargetType: "account",
			TargetID:   r.target,
		}))
	}

	action := AuditChangePassword
	target := "s1"
	entries, err := store.ListAuditLog(ctx, AuditFilter{Action: &action, TargetID: &target})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAuditStore_List_Limit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
			ActorRole:  RoleStudent,
			ActorID:    1,
			Action:     AuditChangePassword,
			TargetType: "account",
			TargetID:   fmt.Sprintf("target-%d", i),
		}))
	}

	entries, err := store.ListAuditLog(ctx, AuditFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestNormalizeAuditLimit(t *testing.T) {
	assert.Equal(t, 100, normalizeAuditLimit(0))
	assert.Equal(t, 100, normalizeAuditLimit(-3))
	assert.Equal(t, 50, normalizeAuditLimit(50))
	assert.Equal(t, 1000, normalizeAuditLimit(5000))
}
