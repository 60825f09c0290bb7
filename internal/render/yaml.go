package render

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// ValidationError marks a manifest document that could not be turned into a
// resource. It is non-retryable: only a source change can fix it.
type ValidationError struct {
	// Source names where the document came from (file path, or the
	// kustomize build output).
	Source string

	// Document is the index of the document within its file, starting at 0.
	Document int

	// Reason describes what is wrong.
	Reason string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s (document %d): %s", e.Source, e.Document, e.Reason)
}

// splitDocuments splits a multi-document YAML stream on "---" separators.
// Empty and comment-only documents are dropped.
func splitDocuments(data []byte) [][]byte {
	var docs [][]byte
	var current bytes.Buffer

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	flush := func() {
		if doc := bytes.TrimSpace(current.Bytes()); len(doc) > 0 && !commentOnly(doc) {
			docs = append(docs, append([]byte(nil), doc...))
		}
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimRight(line, " \t") == "---" {
			flush()
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	flush()

	return docs
}

func commentOnly(doc []byte) bool {
	for _, line := range bytes.Split(doc, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 && !bytes.HasPrefix(trimmed, []byte("#")) {
			return false
		}
	}
	return true
}

// parseDocument turns one YAML document into an unstructured object,
// validating the fields every resource must carry.
func parseDocument(source string, index int, doc []byte) (*unstructured.Unstructured, error) {
	var body map[string]interface{}
	if err := yaml.Unmarshal(doc, &body); err != nil {
		return nil, ValidationError{Source: source, Document: index, Reason: fmt.Sprintf("not valid YAML: %v", err)}
	}
	if body == nil {
		return nil, nil
	}

	obj := &unstructured.Unstructured{Object: body}

	if obj.GetAPIVersion() == "" {
		return nil, ValidationError{Source: source, Document: index, Reason: "missing apiVersion"}
	}
	if obj.GetKind() == "" {
		return nil, ValidationError{Source: source, Document: index, Reason: "missing kind"}
	}
	if obj.GetName() == "" {
		return nil, ValidationError{Source: source, Document: index, Reason: "missing metadata.name"}
	}

	return obj, nil
}
