// Package cache implements the namespaced file store behind vp-cache. Entries
// live at <root>/<key> (root entries) or <root>/<namespace>/<key> (typed
// entries). Writes go through a temp sibling file plus rename so readers only
// ever see a complete value. Failures are absorbed and logged: the cache is
// advisory and callers fall back to recomputing on any miss. Only an empty key
// escalates, as a panic, because it means the key derivation upstream is broken.
package cache
