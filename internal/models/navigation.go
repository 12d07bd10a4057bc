package models

// NavItem is one reachable destination in the portal.
type NavItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// navTable is the static role allow-list. It is the single source of truth
// for both the /navigation endpoint and route-level RBAC.
var navTable = []struct {
	item  NavItem
	roles []UserRole
}{
	{NavItem{"Dashboard", "/"}, []UserRole{RoleAdmin, RoleManager, RoleEmployee}},
	{NavItem{"Onboarding", "/onboarding"}, []UserRole{RoleAdmin, RoleManager}},
	{NavItem{"Approvals", "/approvals"}, []UserRole{RoleAdmin, RoleManager}},
	{NavItem{"Documents", "/documents"}, []UserRole{RoleAdmin, RoleManager, RoleEmployee}},
	{NavItem{"Analytics", "/analytics"}, []UserRole{RoleAdmin, RoleManager}},
	{NavItem{"Users", "/users"}, []UserRole{RoleAdmin}},
	{NavItem{"Settings", "/settings"}, []UserRole{RoleAdmin, RoleManager, RoleEmployee}},
}

// NavigationForRole returns the destinations reachable by the given role.
// Unknown roles fall back to the employee allow-list.
func NavigationForRole(role UserRole) []NavItem {
	if !ValidRole(role) {
		role = RoleEmployee
	}
	items := make([]NavItem, 0, len(navTable))
	for _, entry := range navTable {
		for _, r := range entry.roles {
			if r == role {
				items = append(items, entry.item)
				break
			}
		}
	}
	return items
}

// CanNavigate reports whether the role may reach the given path.
func CanNavigate(role UserRole, path string) bool {
	for _, item := range NavigationForRole(role) {
		if item.Path == path {
			return true
		}
	}
	return false
}
