// Package cache persists translation and synthesis checkpoints in SQLite so
// an interrupted run can resume without repeating paid or slow service calls.
//
// Rows are keyed by a SHA-256 digest of everything that influences the
// result (model, target language and separator for translations; backend
// voice, text and speed for segments). A lookup miss is not an error: Get
// methods report found=false and callers fall through to the live service.
package cache
