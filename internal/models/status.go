package models

import (
	"strings"

	apperrors "tessera/internal/errors"
)

// EventStatus is the lifecycle state of an event. Transitions are forward
// only; TERMINATED and CANCELLED are terminal.
type EventStatus string

const (
	EventDraft      EventStatus = "DRAFT"
	EventPublished  EventStatus = "PUBLISHED"
	EventTerminated EventStatus = "TERMINATED"
	EventCancelled  EventStatus = "CANCELLED"
)

// ParseEventStatus resolves a stored or submitted status string. Unknown
// input fails loudly instead of defaulting so data corruption cannot hide
// behind a fallback state.
func ParseEventStatus(s string) (EventStatus, error) {
	switch EventStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case EventDraft:
		return EventDraft, nil
	case EventPublished:
		return EventPublished, nil
	case EventTerminated:
		return EventTerminated, nil
	case EventCancelled:
		return EventCancelled, nil
	default:
		return "", apperrors.Ef(apperrors.KindValidation, "unknown event status %q", s)
	}
}

// CanTransitionTo reports whether the state machine permits status -> next.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	switch s {
	case EventDraft:
		return next == EventPublished || next == EventCancelled
	case EventPublished:
		return next == EventTerminated || next == EventCancelled
	default:
		return false
	}
}

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

// ActiveReservationStatuses are the statuses that count against capacity.
// Pending counts so that two buyers cannot hold the same seats between
// selection and confirmation.
var ActiveReservationStatuses = []ReservationStatus{ReservationPending, ReservationConfirmed}

func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch ReservationStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case ReservationPending:
		return ReservationPending, nil
	case ReservationConfirmed:
		return ReservationConfirmed, nil
	case ReservationCancelled:
		return ReservationCancelled, nil
	default:
		return "", apperrors.Ef(apperrors.KindValidation, "unknown reservation status %q", s)
	}
}

// Active reports whether the reservation still occupies seats.
func (s ReservationStatus) Active() bool {
	return s == ReservationPending || s == ReservationConfirmed
}

// Category classifies an event for browsing and search.
type Category string

const (
	CategoryConcert    Category = "CONCERT"
	CategoryTheatre    Category = "THEATRE"
	CategoryConference Category = "CONFERENCE"
	CategorySport      Category = "SPORT"
	CategoryOther      Category = "OTHER"
)

// CategoryInfo carries the display metadata of a category.
type CategoryInfo struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

var categoryInfo = map[Category]CategoryInfo{
	CategoryConcert:    {Label: "Concert", Icon: "music"},
	CategoryTheatre:    {Label: "Theatre", Icon: "masks"},
	CategoryConference: {Label: "Conference", Icon: "podium"},
	CategorySport:      {Label: "Sport", Icon: "trophy"},
	CategoryOther:      {Label: "Other", Icon: "calendar"},
}

func (c Category) Info() CategoryInfo {
	return categoryInfo[c]
}

func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToUpper(strings.TrimSpace(s))) {
	case CategoryConcert:
		return CategoryConcert, nil
	case CategoryTheatre:
		return CategoryTheatre, nil
	case CategoryConference:
		return CategoryConference, nil
	case CategorySport:
		return CategorySport, nil
	case CategoryOther:
		return CategoryOther, nil
	default:
		return "", apperrors.Ef(apperrors.KindValidation, "unknown category %q", s)
	}
}

// Role is the access level of a user.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleOrganizer Role = "ORGANIZER"
	RoleClient    Role = "CLIENT"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleOrganizer:
		return RoleOrganizer, nil
	case RoleClient:
		return RoleClient, nil
	default:
		return "", apperrors.Ef(apperrors.KindValidation, "unknown role %q", s)
	}
}

// CanCreateEvents reports whether the role may publish events. Every role
// may reserve seats.
func (r Role) CanCreateEvents() bool {
	return r == RoleAdmin || r == RoleOrganizer
}
