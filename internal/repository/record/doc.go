// Package record persists the run record of the last bootstrap.
package record
