// Package rbac decides what a teacher may do with a board.
package rbac

type Role string
type Action string

const (
	RoleOwner        Role = "owner"
	RoleCollaborator Role = "collaborator"
)

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// RoleFor returns the caller's role on a board owned by ownerID. Every
// signed-in teacher who is not the owner collaborates on shared boards.
func RoleFor(ownerID, userID string) Role {
	if ownerID != "" && ownerID == userID {
		return RoleOwner
	}
	return RoleCollaborator
}

func Can(role Role, action Action) bool {
	switch role {
	case RoleOwner:
		return action == ActionRead || action == ActionWrite || action == ActionDelete
	case RoleCollaborator:
		return action == ActionRead || action == ActionWrite
	default:
		return false
	}
}
