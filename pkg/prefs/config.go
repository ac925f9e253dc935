package prefs

import "github.com/google/uuid"

// Config carries the preference defaults applied to users who never saved
// preferences. Zero cap values leave frequency caps disabled.
type Config struct {
	MaxPerHour int `env:"PREFS_DEFAULT_MAX_PER_HOUR" envDefault:"0"`
	MaxPerDay  int `env:"PREFS_DEFAULT_MAX_PER_DAY" envDefault:"0"`
}

// Defaults returns a default-preferences factory honoring the configured
// caps, suitable for WithDefaultsFactory.
func (c Config) Defaults() func(uuid.UUID) Preferences {
	return func(userID uuid.UUID) Preferences {
		p := DefaultPreferences(userID)
		if c.MaxPerHour > 0 || c.MaxPerDay > 0 {
			p.CapsEnabled = true
			p.MaxPerHour = c.MaxPerHour
			p.MaxPerDay = c.MaxPerDay
		}
		return p
	}
}

// storeSettings is shared by every Store implementation.
type storeSettings struct {
	defaults func(uuid.UUID) Preferences
}

// StoreOption configures a preference store.
type StoreOption func(*storeSettings)

// WithDefaultsFactory overrides what unknown users resolve to. The factory
// must return a valid preference document for any user id.
func WithDefaultsFactory(fn func(uuid.UUID) Preferences) StoreOption {
	return func(s *storeSettings) {
		if fn != nil {
			s.defaults = fn
		}
	}
}

func newStoreSettings(opts []StoreOption) storeSettings {
	s := storeSettings{defaults: DefaultPreferences}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
