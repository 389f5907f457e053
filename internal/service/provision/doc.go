// Package provision installs the packages listed in the dependency manifest.
//
// The manifest format belongs to the installer (pip by default); this
// package only checks that the file exists and hands it over.
package provision
