package permission

// CommunityLearn permissions.
const (
	LessonView     = "lesson.view"
	LessonUpload   = "lesson.upload"
	LessonModerate = "lesson.moderate"
	UserModerate   = "user.moderate"
	StatsView      = "stats.view"
)

// DefaultPermissions lists every CommunityLearn permission in bit order.
func DefaultPermissions() []string {
	return []string{LessonView, LessonUpload, LessonModerate, UserModerate, StatsView}
}

// DefaultRoles maps each CommunityLearn role to its permissions.
func DefaultRoles() map[string][]string {
	return map[string][]string{
		"student": {LessonView},
		"teacher": {LessonView, LessonUpload},
		"admin":   {LessonView, LessonModerate, UserModerate, StatsView},
	}
}

// NewDefaultRoleManager builds and freezes the CommunityLearn role table.
func NewDefaultRoleManager() (*RoleManager, error) {
	return NewRoleManagerFor(DefaultPermissions(), DefaultRoles())
}

// NewRoleManagerFor registers perms and roles and freezes both tables.
func NewRoleManagerFor(perms []string, roles map[string][]string) (*RoleManager, error) {
	registry := NewRegistry()
	for _, p := range perms {
		if _, err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	rm := NewRoleManager(registry)
	for role, list := range roles {
		if err := rm.RegisterRole(role, list); err != nil {
			return nil, err
		}
	}
	rm.Freeze()

	return rm, nil
}
