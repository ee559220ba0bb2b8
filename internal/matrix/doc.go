// Package matrix is the chat transport of the gradebook bot.
//
// The Bridge logs in a Matrix bot account, syncs with the homeserver and
// feeds text messages to a Handler (the conversation Service). Each room
// gets its own worker so one room's messages are handled in order while
// other rooms proceed concurrently. Repeated deliveries of an event are
// dropped through a dedupe.Window.
//
// The Bridge is also the conversation Messenger: replies go out as
// m.notice events with an HTML body, charts as uploaded m.image events.
//
// Encryption is optional; EnableEncryption attaches the mautrix crypto
// helper with its own SQLite key store.
package matrix
