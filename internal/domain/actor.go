package domain

const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// Actor is the already-authenticated principal handed in by the transport
// layer. Identity and role are trusted inputs; the core never derives them.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
func (a Actor) IsStaff() bool { return a.Role == RoleStaff }
