package rbac

// Role constants
const (
	RoleOwner       = "owner"
	RoleAdmin       = "admin"
	RoleParticipant = "participant"
)

// Permission constants
const (
	PermViewParticipations  = "view_participations"
	PermReviewParticipation = "review_participation"
	PermPreviewPromotion    = "preview_promotion"
	PermCompleteBounty      = "complete_bounty"
	PermViewAuditLog        = "view_audit_log"
)

// RolePermissions defines what each role can do on a bounty.
var RolePermissions = map[string][]string{
	RoleOwner: {
		PermViewParticipations, PermReviewParticipation, PermPreviewPromotion,
		PermCompleteBounty,
	},
	RoleAdmin: {
		PermViewParticipations, PermReviewParticipation, PermPreviewPromotion,
		PermCompleteBounty, PermViewAuditLog,
	},
	RoleParticipant: {},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// RoleFor resolves the role of actor on a bounty created by owner. Addresses
// must already be normalized. Admin wins over owner.
func RoleFor(actor, owner string, isAdmin bool) string {
	switch {
	case isAdmin:
		return RoleAdmin
	case actor != "" && actor == owner:
		return RoleOwner
	default:
		return RoleParticipant
	}
}
