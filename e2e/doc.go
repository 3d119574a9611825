// Package e2e holds end-to-end tests that need Docker. Run them with
// go test -tags e2e ./e2e.
package e2e
