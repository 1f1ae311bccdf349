package models

type Role string

const (
	RoleCustomer  Role = "customer"
	RoleTherapist Role = "therapist"
	RoleAdmin     Role = "admin"
)

// Principal is the authenticated caller as asserted by the identity provider.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
