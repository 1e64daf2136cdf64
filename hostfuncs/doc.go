// Package hostfuncs implements the functions the conversion module imports
// from the host: font discovery, font data and log forwarding.
//
// Byte handlers are plain Go (JSON in, JSON out) and are collected in an
// immutable Registry. NewHostModule turns a registry into an
// engine.HostModule that any engine provider can link, handling the guest
// memory side of every call.
package hostfuncs
