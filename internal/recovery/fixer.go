package recovery

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// versionSuffixRe matches major-version path elements like v2 or v11.
var versionSuffixRe = regexp.MustCompile(`^v\d+$`)

// ReadFunc reads a workspace file. WriteFunc mutates one; implementations
// must route through the permission gate like any other tool write.
type (
	ReadFunc  func(ctx context.Context, path string) (string, error)
	WriteFunc func(ctx context.Context, path, content string) error
)

// CommandRunner executes a workspace-rooted command, returning combined
// output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// FileFixer applies remedies to a Go workspace. Dependency remedies go
// through the module tooling; import remedies edit the diagnosed file via
// the gated write path.
type FileFixer struct {
	root  string
	read  ReadFunc
	write WriteFunc
	run   CommandRunner
}

// NewFileFixer creates a fixer for the given workspace root.
func NewFileFixer(root string, read ReadFunc, write WriteFunc, run CommandRunner) *FileFixer {
	return &FileFixer{root: root, read: read, write: write, run: run}
}

// Apply lands the remedy for a diagnosis. Remedy classes the fixer cannot
// mechanize return an error so the engine rotates onward.
func (f *FileFixer) Apply(ctx context.Context, diag Diagnosis) (*AppliedFix, error) {
	switch diag.Class {
	case RemedyAddDependency:
		return f.addDependency(ctx, diag)
	case RemedyAddImport:
		return f.addImport(ctx, diag)
	default:
		return nil, fmt.Errorf("remedy %s requires manual intervention", diag.Class)
	}
}

func (f *FileFixer) addDependency(ctx context.Context, diag Diagnosis) (*AppliedFix, error) {
	if diag.Symbol == "" {
		return nil, fmt.Errorf("no dependency name in diagnosis")
	}

	out, err := f.run.Run(ctx, "go", "get", diag.Symbol)
	if err != nil {
		return nil, fmt.Errorf("go get %s: %v: %s", diag.Symbol, err, out)
	}

	return &AppliedFix{
		Description: fmt.Sprintf("added dependency %s via go get", diag.Symbol),
		Rollback: func() error {
			_, err := f.run.Run(ctx, "go", "mod", "tidy")
			return err
		},
	}, nil
}

func (f *FileFixer) addImport(ctx context.Context, diag Diagnosis) (*AppliedFix, error) {
	if diag.File == "" {
		return nil, fmt.Errorf("no file location in diagnosis")
	}
	pkg := strings.SplitN(diag.Symbol, ".", 2)[0]
	if pkg == "" {
		return nil, fmt.Errorf("no symbol in diagnosis")
	}

	importPath, err := f.resolveImportPath(ctx, pkg)
	if err != nil {
		return nil, err
	}

	target := diag.File
	if !filepath.IsAbs(target) {
		target = filepath.Join(f.root, target)
	}
	original, err := f.read(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}

	patched, err := insertImport(original, importPath)
	if err != nil {
		return nil, err
	}
	if err := f.write(ctx, target, patched); err != nil {
		return nil, fmt.Errorf("write %s: %w", target, err)
	}

	return &AppliedFix{
		Description: fmt.Sprintf("inserted import %q into %s", importPath, diag.File),
		Rollback: func() error {
			return f.write(ctx, target, original)
		},
	}, nil
}

// resolveImportPath maps a package identifier to an import path: the
// standard library first, then the module's existing requirements.
func (f *FileFixer) resolveImportPath(ctx context.Context, pkg string) (string, error) {
	if stdlibPackages[pkg] {
		return pkg, nil
	}

	gomod, err := f.read(ctx, filepath.Join(f.root, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("read go.mod: %w", err)
	}
	for _, line := range strings.Split(gomod, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		candidate := fields[0]
		if candidate == "require" {
			candidate = fields[1]
		}
		if !strings.Contains(candidate, "/") {
			continue
		}
		base := filepath.Base(candidate)
		if versionSuffixRe.MatchString(base) {
			base = filepath.Base(filepath.Dir(candidate))
		}
		if base == pkg {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no import path found for package %s", pkg)
}

// insertImport adds an import path to the file's import block, creating a
// block after the package clause when none exists.
func insertImport(source, importPath string) (string, error) {
	if strings.Contains(source, fmt.Sprintf("%q", importPath)) {
		return "", fmt.Errorf("import %q already present", importPath)
	}

	lines := strings.Split(source, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "import (") {
			patched := append(lines[:i+1:i+1], append([]string{fmt.Sprintf("\t%q", importPath)}, lines[i+1:]...)...)
			return strings.Join(patched, "\n"), nil
		}
	}
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "package ") {
			block := []string{"", "import (", fmt.Sprintf("\t%q", importPath), ")"}
			patched := append(lines[:i+1:i+1], append(block, lines[i+1:]...)...)
			return strings.Join(patched, "\n"), nil
		}
	}
	return "", fmt.Errorf("no package clause in source")
}

// stdlibPackages covers the identifiers the fixer resolves without
// consulting go.mod.
var stdlibPackages = map[string]bool{
	"bufio": true, "bytes": true, "context": true, "errors": true,
	"fmt": true, "io": true, "json": true, "math": true, "os": true,
	"path": true, "regexp": true, "sort": true, "strconv": true,
	"strings": true, "sync": true, "time": true,
}
