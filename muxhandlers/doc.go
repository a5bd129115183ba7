// Package muxhandlers provides gorilla/mux middlewares shared by the sphctl
// HTTP server: correlation ids, panic recovery, handler timeouts and
// request body limits.
package muxhandlers
