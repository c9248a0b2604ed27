package auth

import "github.com/lumen-social/lumen/internal/models"

var roleRank = map[models.Role]int{
	models.RoleUser:      0,
	models.RoleModerator: 1,
	models.RoleAdmin:     2,
}

// AtLeast reports whether role has at least the privileges of min
func AtLeast(role, min models.Role) bool {
	r, ok := roleRank[role]
	if !ok {
		return false
	}
	return r >= roleRank[min]
}

// CanModerate reports whether role may moderate other users' content
func CanModerate(role models.Role) bool {
	return AtLeast(role, models.RoleModerator)
}

// CanAdmin reports whether role has administrative rights
func CanAdmin(role models.Role) bool {
	return AtLeast(role, models.RoleAdmin)
}

// CanEditOrDeletePost allows authors and moderators
func CanEditOrDeletePost(role models.Role, isAuthor bool) bool {
	return isAuthor || CanModerate(role)
}
