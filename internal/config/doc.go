// Package config defines what the bootstrap provisions and launches, and
// provides helpers to load, validate and save it in YAML format.
//
// Values are resolved in this order: built-in defaults, the YAML file,
// BOOTSTRAP_* environment variables, then command line flags applied by the
// caller. The defaults reproduce the classic script: pip with
// requirements.txt, playwright with chromium, uvicorn main:app on $PORT.
package config
