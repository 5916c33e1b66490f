// Package model implements the service data model: it normalizes a
// denormalized schema document (where shapes reference each other by name
// and reference sites may override traits) into a lazily-resolved, cached
// graph of typed shape nodes, and binds operations to their owning service.
//
// The model is constructed once from a schema document and is immutable
// after construction, except for internal resolution caches, which are
// populated on first access and never invalidated.
package model
