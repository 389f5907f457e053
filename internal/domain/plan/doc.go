// Package plan contains the core domain types of a bootstrap run.
//
// A Plan is the ordered list of provisioning Steps, each made of external
// tool Commands, followed by the Launch hand-off to the server. Plans are
// plain data: building them and running them live in the service packages.
package plan
