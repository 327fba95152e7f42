package domain

import (
	"time"

	"github.com/google/uuid"
)

type Capability string

const (
	CapConsumer Capability = "consumer"
	CapFarmer   Capability = "farmer"
	CapAdmin    Capability = "admin"
)

type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	PhoneNumber  string
	IsFarmer     bool
	IsConsumer   bool
	IsAdmin      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Capabilities expands the stored role flags into an explicit set.
// Everyone can browse and buy, so consumer is implied unless the user
// opted out of it at registration and is farmer-only.
func (u User) Capabilities() map[Capability]struct{} {
	caps := make(map[Capability]struct{}, 3)
	if u.IsConsumer {
		caps[CapConsumer] = struct{}{}
	}
	if u.IsFarmer {
		caps[CapFarmer] = struct{}{}
	}
	if u.IsAdmin {
		caps[CapAdmin] = struct{}{}
	}
	if len(caps) == 0 {
		caps[CapConsumer] = struct{}{}
	}
	return caps
}

func (u User) Has(c Capability) bool {
	_, ok := u.Capabilities()[c]
	return ok
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
