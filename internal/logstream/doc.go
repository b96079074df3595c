// Package logstream turns a followed container log into a sequence of lines.
//
// A Stream ends cleanly when the container exits and the API server closes
// the body. Invalid UTF-8 or a transport failure ends it with a
// *k8s.StreamError, and whatever partial line was buffered is dropped.
package logstream
