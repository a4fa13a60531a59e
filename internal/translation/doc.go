// Package translation translates subtitle tracks through a chat completion
// service while keeping every entry's index and timing intact.
//
// Entries are merged into small groups so the model sees neighbouring lines
// as context. Each group is sent as one string joined by a separator token
// and the reply is split on the same token. When the reply does not split
// into exactly one piece per member, every member receives the whole reply
// (the broadcast fallback) and the mismatch is reported; nothing is dropped
// and nothing is guessed.
package translation
