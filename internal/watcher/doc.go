// Package watcher reports changes below a directory tree.
//
// It wraps fsnotify, adds every subdirectory (including ones created later),
// skips ignored path elements such as .git, and debounces bursts of events
// into one sorted batch of paths.
package watcher
