// Package run contains the domain model of a bootstrap run record.
package run
