// Package version reports the build of the parallelio binary.
//
// Version and Commit are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/parallelio/version.Version=1.2.0" ./cmd/parallelio
//
// Values left empty are filled from the module build info when available.
package version
