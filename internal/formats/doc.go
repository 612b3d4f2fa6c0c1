// Package formats holds the static compatibility table that maps a media
// class to the target formats the engine can produce for it.
//
// Everything here is pure lookup over package-level data; callers receive
// copies and can never mutate the table.
package formats
