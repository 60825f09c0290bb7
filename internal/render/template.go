package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// expandParameters substitutes template actions in a manifest file with the
// application's parameters. Files without template actions pass through
// unchanged, so plain manifests never pay the templating cost and never
// break on stray braces in strings.
//
// The full sprig function map is available, e.g.:
//
//	replicas: {{ .replicas | default "2" }}
//	image: registry.example.com/web:{{ .tag }}
func expandParameters(source string, data []byte, parameters map[string]string) ([]byte, error) {
	if len(parameters) == 0 || !hasTemplateActions(data) {
		return data, nil
	}

	tmpl, err := template.New(source).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", source, err)
	}

	ctx := make(map[string]string, len(parameters))
	for key, value := range parameters {
		ctx[key] = value
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, ctx); err != nil {
		// text/template wraps missing-key errors unhelpfully; keep the
		// source name in front.
		return nil, fmt.Errorf("rendering template %s: %w", source, err)
	}

	return out.Bytes(), nil
}

// hasTemplateActions reports whether a file uses template syntax at all.
func hasTemplateActions(data []byte) bool {
	return bytes.Contains(data, []byte("{{")) && strings.Contains(string(data), "}}")
}
