// Package prefs manages per-user notification preferences and the gating
// decisions derived from them.
//
// Preferences cover four concerns:
//
//   - per-type enable flags and per-type delivery method overrides, with a
//     general delivery method the "auto" override falls back to
//   - quiet hours as wall-clock "HH:MM" strings evaluated in the user's IANA
//     timezone, wrapping midnight when the window starts in the evening
//   - frequency caps with rolling hourly and daily windows
//   - digest and language settings consumed by other components
//
// A Gate combines a preference Store with a UsageStore into delivery
// decisions. Check answers "would this notification be allowed right now"
// without side effects; Authorize additionally reserves frequency-cap
// capacity in one atomic step, so two concurrent notifications can never both
// pass a nearly-exhausted cap.
//
// Lookups never fail on absence: users without stored preferences get
// DefaultPreferences, where everything is enabled and no caps apply.
package prefs
