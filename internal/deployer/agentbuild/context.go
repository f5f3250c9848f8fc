package agentbuild

import (
	"fmt"
	"os"
	"path/filepath"
)

// Files written into every build context.
const (
	ProgramFile    = "index.js"
	ManifestFile   = "package.json"
	DockerfileFile = "Dockerfile"
)

// Sources are the rendered files of one agent image.
type Sources struct {
	Program    string
	Manifest   PackageManifest
	Dockerfile string
}

// BuildContext is a temporary directory holding the sources of one build.
// Callers must Close it; Close removes the directory.
type BuildContext struct {
	Dir string
}

// NewBuildContext writes sources into a fresh directory under root, or under
// the system temp directory when root is empty. Nothing is left behind on error.
func NewBuildContext(root, name string, sources Sources) (*BuildContext, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to ensure build root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(root, name+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}
	bc := &BuildContext{Dir: dir}

	manifest, err := sources.Manifest.Marshal()
	if err != nil {
		_ = bc.Close()
		return nil, fmt.Errorf("failed to encode %s: %w", ManifestFile, err)
	}

	files := map[string][]byte{
		ProgramFile:    []byte(sources.Program),
		ManifestFile:   manifest,
		DockerfileFile: []byte(sources.Dockerfile),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
			_ = bc.Close()
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return bc, nil
}

// Close removes the build directory. It is safe to call more than once.
func (bc *BuildContext) Close() error {
	if bc == nil || bc.Dir == "" {
		return nil
	}
	err := os.RemoveAll(bc.Dir)
	bc.Dir = ""
	return err
}
