package constants

import (
	_ "embed"
	"errors"
	"sync"

	json "github.com/bytedance/sonic"
	"github.com/spance/whatsmanifest-go/manifest/definitions"
)

// PackageName is the application id the gate checks for.
const PackageName = "com.whatsapp"

//go:embed compat.json
var compatJSON []byte

var (
	compat  *definitions.Compatibility
	errLoad error
	once    = new(sync.Once)
)

// Load loads the compatibility tables from the embedded JSON.
// The returned value is shared, callers must Clone before modifying it.
func Load() (*definitions.Compatibility, error) {
	once.Do(func() {
		c := &definitions.Compatibility{}
		if err := json.Unmarshal(compatJSON, c); err != nil {
			errLoad = errors.Join(err, errors.New("failed to unmarshal embedded compat.json"))
			return
		}
		compat = c
	})
	return compat, errLoad
}
