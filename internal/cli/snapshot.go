package cli

import (
	"fmt"
	"os"

	"github.com/roach88/loom/internal/ir"
	"github.com/roach88/loom/internal/serialize"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Snapshot file not found
	ErrCodeCorrupt     = "E003" // Snapshot unreadable or failed restore
	ErrCodeNoModules   = "E004" // Snapshot holds no root modules
	ErrCodeWriteFailed = "E005" // File write error
	ErrCodeRender      = "E006" // Code generation failed
	ErrCodeTopMissing  = "E007" // Requested top module not in the design

	// Manifest errors
	ErrCodeManifestRead    = "E010" // Manifest file unreadable
	ErrCodeManifestInvalid = "E011" // Manifest failed schema validation

	// Debug database errors
	ErrCodeDebugDB = "E020" // Debug database open or dump failed
)

// LoadError represents an error that occurred while loading a design
// snapshot or manifest.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDesign opens a snapshot file and restores the design it holds.
// The returned context has at least one root module.
func LoadDesign(path string) (*ir.Context, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("design snapshot not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error opening design snapshot: %v", err)}
	}
	defer f.Close()

	ctx, err := serialize.Restore(f)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeCorrupt, Message: fmt.Sprintf("restoring %s: %v", path, err)}
	}

	if len(ctx.Roots()) == 0 {
		return nil, &LoadError{Code: ErrCodeNoModules, Message: fmt.Sprintf("design %s holds no root modules", path)}
	}

	return ctx, nil
}

// selectRoots returns the design roots to operate on. With an empty top
// every root is selected; otherwise exactly the root with that name.
func selectRoots(ctx *ir.Context, top string) ([]*ir.Generator, error) {
	roots := ctx.Roots()
	if top == "" {
		return roots, nil
	}
	for _, g := range roots {
		if g.Name() == top {
			return []*ir.Generator{g}, nil
		}
	}
	names := make([]string, 0, len(roots))
	for _, g := range roots {
		names = append(names, g.Name())
	}
	return nil, &LoadError{
		Code:    ErrCodeTopMissing,
		Message: fmt.Sprintf("top module %q not in the design (roots: %v)", top, names),
	}
}
