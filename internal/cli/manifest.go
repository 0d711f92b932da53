package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Manifest holds build options for the emit command, loaded from a CUE file.
//
// A manifest looks like:
//
//	top:         "soc_top"
//	output:      "out/rtl"
//	keep_events: true
//	debug_db:    "out/debug.db"
//
// Every field is optional; flags given explicitly on the command line win
// over manifest values.
type Manifest struct {
	// Top restricts emission to the named root module.
	Top string

	// Output is the directory generated files are written to.
	Output string

	// KeepEvents writes the extracted event report next to the generated
	// modules instead of discarding it with the stripped statements.
	KeepEvents bool

	// DebugDB dumps debug symbols for the emitted design to this SQLite
	// database path.
	DebugDB string
}

// LoadManifest reads and validates a CUE build manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeManifestRead, Message: fmt.Sprintf("reading manifest: %v", err)}
	}

	cctx := cuecontext.New()
	v := cctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeManifestInvalid, Message: fmt.Sprintf("parsing manifest: %v", err)}
	}

	m := &Manifest{Output: "."}

	if tv := v.LookupPath(cue.ParsePath("top")); tv.Exists() {
		s, err := tv.String()
		if err != nil {
			return nil, manifestFieldError("top", "string", err)
		}
		m.Top = s
	}

	if ov := v.LookupPath(cue.ParsePath("output")); ov.Exists() {
		s, err := ov.String()
		if err != nil {
			return nil, manifestFieldError("output", "string", err)
		}
		if s == "" {
			return nil, &LoadError{Code: ErrCodeManifestInvalid, Message: "manifest output must not be empty"}
		}
		m.Output = s
	}

	if kv := v.LookupPath(cue.ParsePath("keep_events")); kv.Exists() {
		b, err := kv.Bool()
		if err != nil {
			return nil, manifestFieldError("keep_events", "bool", err)
		}
		m.KeepEvents = b
	}

	if dv := v.LookupPath(cue.ParsePath("debug_db")); dv.Exists() {
		s, err := dv.String()
		if err != nil {
			return nil, manifestFieldError("debug_db", "string", err)
		}
		m.DebugDB = s
	}

	return m, nil
}

func manifestFieldError(field, want string, err error) *LoadError {
	return &LoadError{
		Code:    ErrCodeManifestInvalid,
		Message: fmt.Sprintf("manifest %s must be a %s: %v", field, want, err),
	}
}
