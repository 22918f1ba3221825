package authz

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicates(t *testing.T) {
	reporter := Principal{UserID: "a", Roles: []Role{RoleReporter}}
	reviewer := Principal{UserID: "b", Roles: []Role{RoleReporter, RoleReviewer}}
	coordinator := Principal{UserID: "c", Roles: []Role{RoleReporter, RoleCoordinator}}

	assert.False(t, CanViewIncidents(reporter))
	assert.True(t, CanViewIncidents(reviewer))
	assert.True(t, CanViewIncidents(coordinator))

	assert.False(t, CanDeleteReport(reviewer))
	assert.True(t, CanDeleteReport(coordinator))

	assert.False(t, CanManageStatements(reporter))
	assert.True(t, CanManageStatements(coordinator))

	assert.False(t, CanRunReminders(reviewer))
	assert.True(t, CanRunReminders(coordinator))
}

func TestFromClaims(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":       "JSMITH",
		"name":      "Jo Smith",
		"email":     "jo@example.com",
		"agency_id": "MDI",
		"roles":     []interface{}{"reviewer", "unknown", "REVIEWER"},
	}

	p, err := FromClaims(claims, nil)
	require.NoError(t, err)

	assert.Equal(t, "JSMITH", p.UserID)
	assert.Equal(t, "Jo Smith", p.Name)
	assert.Equal(t, "MDI", p.AgencyID)
	assert.ElementsMatch(t, []Role{RoleReporter, RoleReviewer}, p.Roles)
}

func TestFromClaims_ConfiguredCoordinator(t *testing.T) {
	p, err := FromClaims(jwt.MapClaims{"sub": "BOSS"}, []string{"BOSS"})
	require.NoError(t, err)
	assert.True(t, p.Has(RoleCoordinator))
}

func TestFromClaims_MissingSubject(t *testing.T) {
	_, err := FromClaims(jwt.MapClaims{"name": "x"}, nil)
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" coordinator ")
	assert.True(t, ok)
	assert.Equal(t, RoleCoordinator, r)

	_, ok = ParseRole("ADMIN")
	assert.False(t, ok)
}
