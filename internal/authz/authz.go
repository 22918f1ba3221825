// Package authz models the authenticated principal and the role checks
// guarding each protected operation.
package authz

import (
	"errors"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleReporter    Role = "REPORTER"
	RoleReviewer    Role = "REVIEWER"
	RoleCoordinator Role = "COORDINATOR"
)

var knownRoles = []Role{RoleReporter, RoleReviewer, RoleCoordinator}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	AgencyID string `json:"agency_id"`
	Roles    []Role `json:"roles"`
}

func (p Principal) Has(role Role) bool {
	return slices.Contains(p.Roles, role)
}

// CanViewIncidents allows reviewers and coordinators to list reports across their agency.
func CanViewIncidents(p Principal) bool {
	return p.Has(RoleReviewer) || p.Has(RoleCoordinator)
}

func CanDeleteReport(p Principal) bool {
	return p.Has(RoleCoordinator)
}

// CanManageStatements covers removing involved staff and disposing of removal requests.
func CanManageStatements(p Principal) bool {
	return p.Has(RoleCoordinator)
}

func CanRunReminders(p Principal) bool {
	return p.Has(RoleCoordinator)
}

// ParseRole maps a claim value onto a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if slices.Contains(knownRoles, r) {
		return r, true
	}
	return "", false
}

const principalKey = "principal"

// FromClaims builds a principal from verified JWT claims. Every authenticated
// user may report; reviewer and coordinator come from the roles claim or
// from the configured coordinator list.
func FromClaims(claims jwt.MapClaims, coordinators []string) (Principal, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Principal{}, errors.New("missing sub claim")
	}

	p := Principal{UserID: sub, Roles: []Role{RoleReporter}}
	p.Name, _ = claims["name"].(string)
	p.Email, _ = claims["email"].(string)
	p.AgencyID, _ = claims["agency_id"].(string)

	if raw, ok := claims["roles"].([]interface{}); ok {
		for _, v := range raw {
			s, _ := v.(string)
			if r, ok := ParseRole(s); ok && !p.Has(r) {
				p.Roles = append(p.Roles, r)
			}
		}
	}
	if slices.Contains(coordinators, sub) && !p.Has(RoleCoordinator) {
		p.Roles = append(p.Roles, RoleCoordinator)
	}
	return p, nil
}

// SetPrincipal stores p on the request context.
func SetPrincipal(c *fiber.Ctx, p Principal) {
	c.Locals(principalKey, p)
}

// GetPrincipal returns the principal stored by the auth middleware.
func GetPrincipal(c *fiber.Ctx) (Principal, error) {
	p, ok := c.Locals(principalKey).(Principal)
	if !ok {
		return Principal{}, errors.New("no principal in context")
	}
	return p, nil
}
