// Package agentbuild renders the sources of an agent container image: the
// program text, its package manifest and the build recipe.
package agentbuild

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed templates
var templateFiles embed.FS

// DefaultHealthPort is used when no health-check port is supplied.
const DefaultHealthPort = 8080

// Fragments are the user-supplied program bodies of an agent.
type Fragments struct {
	Baseline string
	Interval string
}

type programData struct {
	APIBaseURL string
	Preamble   string
	Port       int
	Baseline   string
	Interval   string
}

type dockerfileData struct {
	BaseImage string
	Port      int
}

// Generator renders agent sources from the embedded templates.
type Generator struct {
	templateFiles fs.FS
	templateRoot  string
	apiBaseURL    string
}

// NewGenerator returns a generator whose runtime calls the given trading API.
func NewGenerator(apiBaseURL string) *Generator {
	return &Generator{
		templateFiles: templateFiles,
		templateRoot:  "templates",
		apiBaseURL:    apiBaseURL,
	}
}

// AssembleProgram joins the runtime preamble, a health-check listener and both
// fragments, verbatim and in order, into one program text. Fragments are not
// parsed: a malformed fragment only surfaces when the container starts.
func (g *Generator) AssembleProgram(fragments Fragments, port int) (string, error) {
	if port <= 0 {
		port = DefaultHealthPort
	}
	preamble, err := g.readTemplateFile("runtime.js")
	if err != nil {
		return "", err
	}
	return g.render("index.js.tmpl", programData{
		APIBaseURL: g.apiBaseURL,
		Preamble:   string(preamble),
		Port:       port,
		Baseline:   fragments.Baseline,
		Interval:   fragments.Interval,
	})
}

// RenderDockerfile renders the build recipe for the given base image.
func (g *Generator) RenderDockerfile(baseImage string, port int) (string, error) {
	if port <= 0 {
		port = DefaultHealthPort
	}
	return g.render("Dockerfile.tmpl", dockerfileData{BaseImage: baseImage, Port: port})
}

func (g *Generator) render(name string, data any) (string, error) {
	content, err := g.readTemplateFile(name)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var result strings.Builder
	if err := tmpl.Execute(&result, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return result.String(), nil
}

func (g *Generator) readTemplateFile(name string) ([]byte, error) {
	content, err := fs.ReadFile(g.templateFiles, g.templateRoot+"/"+name)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return content, nil
}
