// Package version carries the library's build version, stamped at
// compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/eureka/version.Version=1.2.0"
//
// The transport layer advertises it in the User-Agent header of every
// registry request.
package version
