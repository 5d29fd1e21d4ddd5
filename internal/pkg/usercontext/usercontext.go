package usercontext

import "github.com/gofiber/fiber/v2"

// PrincipalKind tags who is acting: a taxpayer, a chartered accountant or an
// admin. Recipient and actor references across the system carry this tag
// instead of a loosely validated id+type pair.
type PrincipalKind string

const (
	KindUser  PrincipalKind = "user"
	KindCA    PrincipalKind = "ca"
	KindAdmin PrincipalKind = "admin"
)

// Principal is the authenticated caller as resolved at the HTTP boundary.
// For CAs, CAID is the professional profile id; UserID is always the account
// id behind it.
type Principal struct {
	UserID     uint          `json:"user_id"`
	CAID       uint          `json:"ca_id,omitempty"`
	Name       string        `json:"name"`
	Kind       PrincipalKind `json:"kind"`
	IsLoggedIn bool          `json:"is_logged_in"`
}

func (p Principal) IsCA() bool {
	return p.Kind == KindCA
}

func (p Principal) IsAdmin() bool {
	return p.Kind == KindAdmin
}

// GetPrincipal retrieves the principal from the fiber context. Returns an
// anonymous principal if none is set.
func GetPrincipal(c *fiber.Ctx) Principal {
	if ctx := c.Locals(KeyPrincipal); ctx != nil {
		return ctx.(Principal)
	}
	return Principal{IsLoggedIn: false}
}

// SetPrincipal stores the principal on the fiber context.
func SetPrincipal(c *fiber.Ctx, p Principal) {
	c.Locals(KeyPrincipal, p)
}
