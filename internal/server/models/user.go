package models

import "time"

// User is a chat platform user. ID is the platform user id.
type User struct {
	ID        int64
	Username  string
	FullName  string
	Role      Role
	CreatedAt time.Time
}
