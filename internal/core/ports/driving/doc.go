// Package driving defines the interfaces through which callers drive the
// core (the "primary" ports in hexagonal architecture). The CLI adapter
// and any embedding application program against these interfaces; the
// auth and service packages implement them.
package driving
