// Package unidoc tracks whether the unioffice library may read and write
// documents in this process.
package unidoc

import (
	"fmt"
	"sync/atomic"

	"github.com/unidoc/unioffice/common/license"
)

var licensed atomic.Bool

// SetLicenseKey activates a metered unioffice license. An empty key leaves
// the library unlicensed.
func SetLicenseKey(key string) error {
	if key == "" {
		return nil
	}
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("failed to set document license: %w", err)
	}
	licensed.Store(true)
	return nil
}

// Licensed reports whether unioffice will open and save documents
func Licensed() bool {
	return licensed.Load()
}
