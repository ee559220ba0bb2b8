// Package dedupe suppresses repeated deliveries of the same chat event.
//
// The Matrix bridge records every event ID in a Window before routing it;
// a second delivery inside the window is dropped so a score is never
// entered twice because the homeserver replayed a sync batch.
package dedupe
