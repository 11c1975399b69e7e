package models

import "fmt"

// User represents a member of the group.
//
// Group membership is fixed: members are seeded when the store is
// initialised and never change afterwards.
type User struct {
	// ID is the opaque identifier referenced by expenses and splits.
	ID string `json:"id"`

	// Name is the display name of the member.
	Name string `json:"name"`

	// Avatar is a URL for the member's picture.
	Avatar string `json:"avatar"`
}

const avatarURLFormat = "https://api.dicebear.com/7.x/avataaars/svg?seed=%s"

// NewUser creates a member with a generated avatar URL.
func NewUser(id, name string) User {
	return User{
		ID:     id,
		Name:   name,
		Avatar: fmt.Sprintf(avatarURLFormat, name),
	}
}

// DefaultUsers returns the members a fresh group starts with.
func DefaultUsers() []User {
	return []User{
		NewUser("1", "Alex"),
		NewUser("2", "Jordan"),
		NewUser("3", "Casey"),
	}
}

// UserNames maps user IDs to display names.
func UserNames(users []User) map[string]string {
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names
}
