// Package notifications pushes run outcomes to ntfy.
//
// Rendering a long subtitle file can take a while, so a completed or failed
// speak or translate run can be announced on a phone or desktop. When no
// topic is configured NewService returns a no-op implementation and callers
// never need to check.
package notifications
