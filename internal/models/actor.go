package models

import "fmt"

// ActorKind discriminates who performed an action
type ActorKind string

const (
	ActorUser     ActorKind = "user"
	ActorRollover ActorKind = "rollover"
	ActorSystem   ActorKind = "system"
)

// Actor identifies the origin of a change. ID is only meaningful for users.
type Actor struct {
	Kind ActorKind `gorm:"size:16" json:"kind,omitempty"`
	ID   uint      `json:"id,omitempty"`
}

// UserActor returns an actor for the given user id
func UserActor(id uint) Actor {
	return Actor{Kind: ActorUser, ID: id}
}

// RolloverActor returns the actor used by the rollover batch
func RolloverActor() Actor {
	return Actor{Kind: ActorRollover}
}

// SystemActor returns the actor used for engine-initiated changes
func SystemActor() Actor {
	return Actor{Kind: ActorSystem}
}

// IsZero reports whether no actor was recorded
func (a Actor) IsZero() bool {
	return a.Kind == ""
}

func (a Actor) String() string {
	switch a.Kind {
	case "":
		return "-"
	case ActorUser:
		return fmt.Sprintf("user#%d", a.ID)
	default:
		return string(a.Kind)
	}
}
