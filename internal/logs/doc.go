// Package logs reads back the convertify log file for the CLI.
//
// Tail returns the last lines of the file and an offset; passing the offset
// back with Follow set waits for lines appended after it.
package logs
