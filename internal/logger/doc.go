// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger writing console lines to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing for the --log-level flag,
//   - convenience functions (InfoKV, ErrorKV, etc.).
//
// Every bootstrap step accepts a context and extracts the logger from it,
// so the run id and step name appear on each line.
package logger
