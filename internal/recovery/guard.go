package recovery

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"
)

// GuardVerifier checks an applied fix by generating a regression guard for
// the diagnosed failure and re-running the workspace probe. The guard file
// lands under .aide/guards so later sessions keep exercising the fix.
type GuardVerifier struct {
	root  string
	write WriteFunc
	run   CommandRunner
	probe []string
}

// NewGuardVerifier creates a verifier for the given workspace root. The
// default probe builds the whole module.
func NewGuardVerifier(root string, write WriteFunc, run CommandRunner) *GuardVerifier {
	return &GuardVerifier{
		root:  root,
		write: write,
		run:   run,
		probe: []string{"go", "build", "./..."},
	}
}

// WithProbe overrides the verification command.
func (v *GuardVerifier) WithProbe(name string, args ...string) *GuardVerifier {
	v.probe = append([]string{name}, args...)
	return v
}

// Verify writes the regression guard and runs the probe. The first return
// reports whether a guard was generated, the second whether the probe
// passed.
func (v *GuardVerifier) Verify(ctx context.Context, diag Diagnosis) (bool, bool, error) {
	generated := false
	source, name := guardSource(diag)
	if source != "" {
		path := filepath.Join(v.root, ".aide", "guards", name)
		if err := v.write(ctx, path, source); err == nil {
			generated = true
		}
	}

	out, err := v.run.Run(ctx, v.probe[0], v.probe[1:]...)
	if err != nil {
		return generated, false, fmt.Errorf("probe failed: %v: %s", err, strings.TrimSpace(out))
	}
	return generated, true, nil
}

// guardSource renders a note recording the failure signature the fix
// resolved. Probe reruns assert the signature stays gone; the note keeps
// the history reviewable.
func guardSource(diag Diagnosis) (string, string) {
	if diag.Class == RemedyGeneric {
		return "", ""
	}
	sig := diag.Signature()
	sum := sha256.Sum256([]byte(sig))
	name := fmt.Sprintf("%x.txt", sum[:8])

	var b strings.Builder
	fmt.Fprintf(&b, "signature: %s\n", sig)
	fmt.Fprintf(&b, "remedy: %s\n", diag.Class)
	if diag.Symbol != "" {
		fmt.Fprintf(&b, "symbol: %s\n", diag.Symbol)
	}
	if diag.File != "" {
		fmt.Fprintf(&b, "file: %s\n", diag.File)
	}
	fmt.Fprintf(&b, "message: %s\n", diag.Message)
	return b.String(), name
}
