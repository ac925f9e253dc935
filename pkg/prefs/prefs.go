package prefs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeliveryMethod restricts which channel kinds may carry a notification.
type DeliveryMethod string

const (
	// MethodAny places no channel restriction.
	MethodAny DeliveryMethod = "any"
	// MethodAuto is only valid as a per-type override and resolves to the
	// general method.
	MethodAuto DeliveryMethod = "auto"
	// MethodSocket restricts delivery to live in-app connections.
	MethodSocket DeliveryMethod = "socket"
	// MethodPush restricts delivery to push gateways.
	MethodPush DeliveryMethod = "push"
	// MethodEmail restricts delivery to email.
	MethodEmail DeliveryMethod = "email"
	// MethodOff disables delivery entirely.
	MethodOff DeliveryMethod = "disabled"
)

// DigestInterval controls how often digest summaries go out.
type DigestInterval string

const (
	DigestHourly DigestInterval = "hourly"
	DigestDaily  DigestInterval = "daily"
	DigestWeekly DigestInterval = "weekly"
)

// Preferences holds one user's notification settings. The zero value is not
// usable; start from DefaultPreferences.
//
// TypeEnabled and TypeMethod are sparse: types absent from the maps are
// enabled and follow the general method, so new notification types never
// require a data migration.
type Preferences struct {
	UserID uuid.UUID

	TypeEnabled   map[string]bool
	TypeMethod    map[string]DeliveryMethod
	GeneralMethod DeliveryMethod

	QuietHoursEnabled bool
	QuietHoursStart   string // "HH:MM" wall clock in Timezone
	QuietHoursEnd     string
	Timezone          string // IANA name, e.g. "Europe/Kyiv"

	CapsEnabled bool
	MaxPerHour  int // 0 = unlimited
	MaxPerDay   int // 0 = unlimited

	DigestEnabled  bool
	DigestInterval DigestInterval

	Language string // BCP-47 tag for content localization

	UpdatedAt time.Time
}

// DefaultPreferences returns the settings a user has before customizing
// anything: every type enabled on any channel, no quiet hours, no caps.
func DefaultPreferences(userID uuid.UUID) Preferences {
	return Preferences{
		UserID:          userID,
		TypeEnabled:     map[string]bool{},
		TypeMethod:      map[string]DeliveryMethod{},
		GeneralMethod:   MethodAny,
		QuietHoursStart: "22:00",
		QuietHoursEnd:   "08:00",
		Timezone:        "UTC",
		DigestInterval:  DigestDaily,
		Language:        "en",
	}
}

// EnabledFor reports whether the type may be delivered at all.
func (p Preferences) EnabledFor(notifType string) bool {
	if enabled, ok := p.TypeEnabled[notifType]; ok && !enabled {
		return false
	}
	return p.MethodFor(notifType) != MethodOff
}

// MethodFor resolves the effective delivery method for the type: an explicit
// override wins, "auto" and absence fall back to the general method.
func (p Preferences) MethodFor(notifType string) DeliveryMethod {
	if m, ok := p.TypeMethod[notifType]; ok && m != MethodAuto && m != "" {
		return m
	}
	if p.GeneralMethod == "" {
		return MethodAny
	}
	return p.GeneralMethod
}

// Validate checks the cross-field rules. Stores call it before persisting.
func (p Preferences) Validate() error {
	switch p.GeneralMethod {
	case MethodAny, MethodSocket, MethodPush, MethodEmail, MethodOff:
	default:
		return fmt.Errorf("%w: general method %q", ErrInvalidMethod, p.GeneralMethod)
	}
	for t, m := range p.TypeMethod {
		switch m {
		case MethodAuto, MethodAny, MethodSocket, MethodPush, MethodEmail, MethodOff:
		default:
			return fmt.Errorf("%w: type %q method %q", ErrInvalidMethod, t, m)
		}
	}
	if p.QuietHoursEnabled {
		if _, err := parseClock(p.QuietHoursStart); err != nil {
			return fmt.Errorf("%w: start %q", ErrInvalidQuietTime, p.QuietHoursStart)
		}
		if _, err := parseClock(p.QuietHoursEnd); err != nil {
			return fmt.Errorf("%w: end %q", ErrInvalidQuietTime, p.QuietHoursEnd)
		}
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTimezone, p.Timezone)
		}
	}
	if p.MaxPerHour < 0 || p.MaxPerDay < 0 {
		return ErrInvalidCaps
	}
	if p.DigestEnabled {
		switch p.DigestInterval {
		case DigestHourly, DigestDaily, DigestWeekly:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidInterval, p.DigestInterval)
		}
	}
	return nil
}

// Patch is a sparse update: nil pointers and absent map keys leave the
// current value untouched.
type Patch struct {
	TypeEnabled map[string]bool
	TypeMethod  map[string]DeliveryMethod

	GeneralMethod *DeliveryMethod

	QuietHoursEnabled *bool
	QuietHoursStart   *string
	QuietHoursEnd     *string
	Timezone          *string

	CapsEnabled *bool
	MaxPerHour  *int
	MaxPerDay   *int

	DigestEnabled  *bool
	DigestInterval *DigestInterval

	Language *string
}

// apply merges the patch into a copy of p and returns it.
func (patch Patch) apply(p Preferences) Preferences {
	out := p
	out.TypeEnabled = make(map[string]bool, len(p.TypeEnabled)+len(patch.TypeEnabled))
	for k, v := range p.TypeEnabled {
		out.TypeEnabled[k] = v
	}
	for k, v := range patch.TypeEnabled {
		out.TypeEnabled[k] = v
	}
	out.TypeMethod = make(map[string]DeliveryMethod, len(p.TypeMethod)+len(patch.TypeMethod))
	for k, v := range p.TypeMethod {
		out.TypeMethod[k] = v
	}
	for k, v := range patch.TypeMethod {
		out.TypeMethod[k] = v
	}

	if patch.GeneralMethod != nil {
		out.GeneralMethod = *patch.GeneralMethod
	}
	if patch.QuietHoursEnabled != nil {
		out.QuietHoursEnabled = *patch.QuietHoursEnabled
	}
	if patch.QuietHoursStart != nil {
		out.QuietHoursStart = *patch.QuietHoursStart
	}
	if patch.QuietHoursEnd != nil {
		out.QuietHoursEnd = *patch.QuietHoursEnd
	}
	if patch.Timezone != nil {
		out.Timezone = *patch.Timezone
	}
	if patch.CapsEnabled != nil {
		out.CapsEnabled = *patch.CapsEnabled
	}
	if patch.MaxPerHour != nil {
		out.MaxPerHour = *patch.MaxPerHour
	}
	if patch.MaxPerDay != nil {
		out.MaxPerDay = *patch.MaxPerDay
	}
	if patch.DigestEnabled != nil {
		out.DigestEnabled = *patch.DigestEnabled
	}
	if patch.DigestInterval != nil {
		out.DigestInterval = *patch.DigestInterval
	}
	if patch.Language != nil {
		out.Language = *patch.Language
	}
	return out
}

// Store persists preferences. Get never fails on absence; it returns
// DefaultPreferences for unknown users.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (Preferences, error)
	Save(ctx context.Context, p Preferences) error
	Patch(ctx context.Context, userID uuid.UUID, patch Patch) (Preferences, error)
}
