// Package device keeps the registry of push-capable device tokens.
//
// Push providers (Expo, FCM) deliver to opaque per-device tokens that mobile
// and web clients register after obtaining notification permission. The
// registry stores these tokens per user and platform, marks dead tokens
// inactive when a gateway reports the device as unregistered, and serves the
// active token set to the push providers at send time.
//
// A token is unique per platform: re-registering an existing token moves it
// to the new user (device changed hands or the user re-logged-in) and
// reactivates it.
package device
