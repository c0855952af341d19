// Package notifications tells an ntfy topic when a pipeline run finishes.
//
// NewNotifier returns a no-op implementation when no topic is configured, so
// callers never need to check whether notices are enabled.
package notifications
