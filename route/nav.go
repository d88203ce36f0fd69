package route

import "github.com/communitylearn/learnauth/profile"

// Link is one navigation entry.
type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// NavLinks returns the navigation entries shown to role, starting with its
// dashboard home. Unknown roles get none.
func NavLinks(role profile.Role) []Link {
	home, ok := DashboardPath(role)
	if !ok {
		return nil
	}

	links := []Link{{Label: "Home", Href: home}}
	switch role {
	case profile.RoleStudent:
		links = append(links, Link{Label: "Lessons", Href: home + "/lessons"})
	case profile.RoleTeacher:
		links = append(links,
			Link{Label: "Upload New Lesson", Href: home + "/upload"},
			Link{Label: "My Uploads", Href: home + "/my-uploads"},
		)
	case profile.RoleAdmin:
		links = append(links,
			Link{Label: "Users", Href: home + "/users"},
			Link{Label: "Lessons", Href: home + "/lessons"},
		)
	}
	return links
}
