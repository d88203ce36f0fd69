package learnauth

import "github.com/communitylearn/learnauth/profile"

// State is the resolver's position in its state machine.
type State uint8

const (
	// StateInit is the state from construction until the first notification.
	StateInit State = iota
	// StateResolving means a profile lookup for the latest identity is pending.
	StateResolving
	// StateAuthenticated means the latest identity has a profile.
	StateAuthenticated
	// StateUnauthenticated means signed out, or signed in without a usable profile.
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// SessionView is a snapshot of who is logged in and in what role.
// Loading is true in StateInit and StateResolving only.
type SessionView struct {
	User    *profile.Profile
	Loading bool
	State   State
}

// Authenticated reports whether the view carries a user.
func (v SessionView) Authenticated() bool {
	return v.User != nil
}

// Role returns the user's role, or "" when anonymous.
func (v SessionView) Role() profile.Role {
	if v.User == nil {
		return ""
	}
	return v.User.Role
}

func viewFor(state State, user *profile.Profile) SessionView {
	return SessionView{
		User:    cloneProfile(user),
		Loading: state == StateInit || state == StateResolving,
		State:   state,
	}
}

func cloneProfile(p *profile.Profile) *profile.Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
