// Package browser provisions the headless browser engine that the
// application's automation code expects at runtime.
//
// Two providers exist: "command" runs a browser automation installer
// (`playwright install chromium` by default) and "rod" locates or downloads
// Chromium in-process with go-rod's launcher.
package browser
