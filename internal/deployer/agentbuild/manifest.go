package agentbuild

import "encoding/json"

// Runtime dependencies of every agent. The generated program imports nothing else.
var runtimeDependencies = map[string]string{
	"@kadena/client":    "^1.17.1",
	"@kadena/hd-wallet": "^0.6.1",
}

// PackageManifest is the package.json of a generated agent.
type PackageManifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Type         string            `json:"type"`
	Main         string            `json:"main"`
	Scripts      map[string]string `json:"scripts"`
	Dependencies map[string]string `json:"dependencies"`
}

// NewPackageManifest describes the package for the named agent.
func NewPackageManifest(name string) PackageManifest {
	deps := make(map[string]string, len(runtimeDependencies))
	for k, v := range runtimeDependencies {
		deps[k] = v
	}
	return PackageManifest{
		Name:         name,
		Version:      "1.0.0",
		Type:         "module",
		Main:         "index.js",
		Scripts:      map[string]string{"start": "node index.js"},
		Dependencies: deps,
	}
}

// Marshal encodes the manifest the way npm writes it.
func (m PackageManifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
