package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"owner", "admin", "analyst", "content_creator"} {
		role, err := ParseRole(valid)
		require.NoError(t, err)
		assert.Equal(t, Role(valid), role)
	}

	for _, invalid := range []string{"", "superuser", "Owner", "ADMIN"} {
		_, err := ParseRole(invalid)
		assert.True(t, IsValidation(err), "role %q should be rejected", invalid)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("Jane@Example.COM"))
	assert.Equal(t, "jane@example.com", NormalizeEmail("  jane@example.com "))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("jane@example.com"))

	for _, bad := range []string{"", "jane", "jane@", "Jane Doe <jane@example.com>"} {
		assert.True(t, IsValidation(ValidateEmail(bad)), "email %q should be rejected", bad)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("longenough"))
	assert.True(t, IsValidation(ValidatePassword("short")))
	assert.True(t, IsValidation(ValidatePassword("")))
}

func TestNewPage(t *testing.T) {
	p, err := NewPage(0, 0)
	require.NoError(t, err)
	assert.Equal(t, Page{Page: 1, PerPage: DefaultPerPage}, p)

	p, err = NewPage(3, 25)
	require.NoError(t, err)
	assert.Equal(t, Page{Page: 3, PerPage: 25}, p)
	assert.Equal(t, 50, p.Offset())

	// Oversized per_page is clamped, not rejected.
	p, err = NewPage(1, 1000)
	require.NoError(t, err)
	assert.Equal(t, MaxPerPage, p.PerPage)

	_, err = NewPage(-1, 50)
	assert.True(t, IsValidation(err))

	_, err = NewPage(1, -5)
	assert.True(t, IsValidation(err))
}

func TestNewPagination(t *testing.T) {
	p := Page{Page: 1, PerPage: 50}

	meta := NewPagination(p, 100)
	assert.Equal(t, Pagination{Page: 1, PerPage: 50, Total: 100, Pages: 2, HasNext: true, HasPrev: false}, meta)

	meta = NewPagination(Page{Page: 2, PerPage: 50}, 100)
	assert.Equal(t, Pagination{Page: 2, PerPage: 50, Total: 100, Pages: 2, HasNext: false, HasPrev: true}, meta)

	meta = NewPagination(p, 0)
	assert.Equal(t, Pagination{Page: 1, PerPage: 50, Total: 0, Pages: 0, HasNext: false, HasPrev: false}, meta)

	meta = NewPagination(Page{Page: 1, PerPage: 50}, 101)
	assert.Equal(t, 3, meta.Pages)
}

func TestFilterValidate(t *testing.T) {
	day1 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, AuditLogFilter{}.Validate())
	assert.NoError(t, AuditLogFilter{Start: &day1, End: &day2}.Validate())
	assert.NoError(t, AuditLogFilter{Start: &day1, End: &day1}.Validate())
	assert.True(t, IsValidation(AuditLogFilter{Start: &day2, End: &day1}.Validate()))
}

func TestFilterMatches(t *testing.T) {
	userID := "user-1"
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entry := &AuditLog{
		UserID:       &userID,
		Action:       "user_login",
		ResourceType: "user",
		CreatedAt:    at,
	}

	assert.True(t, AuditLogFilter{}.Matches(entry))
	assert.True(t, AuditLogFilter{UserID: "user-1", Action: "user_login", ResourceType: "user"}.Matches(entry))

	assert.False(t, AuditLogFilter{UserID: "user-2"}.Matches(entry))
	assert.False(t, AuditLogFilter{Action: "user_logout"}.Matches(entry))
	assert.False(t, AuditLogFilter{Action: "user"}.Matches(entry), "action filter is exact, not substring")
	assert.False(t, AuditLogFilter{ResourceType: "account"}.Matches(entry))

	before := at.Add(-time.Hour)
	after := at.Add(time.Hour)
	assert.True(t, AuditLogFilter{Start: &before, End: &after}.Matches(entry))
	assert.True(t, AuditLogFilter{Start: &at, End: &at}.Matches(entry), "bounds are inclusive")
	assert.False(t, AuditLogFilter{Start: &after}.Matches(entry))
	assert.False(t, AuditLogFilter{End: &before}.Matches(entry))

	system := &AuditLog{Action: "retention_sweep", CreatedAt: at}
	assert.False(t, AuditLogFilter{UserID: "user-1"}.Matches(system), "user filter excludes system entries")
}
