// Package manifest records what a build read and wrote so later builds and
// deploy tooling can tell which outputs changed.
package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/inful/mdfp"
)

// FileName is the manifest's name inside the output directory.
const FileName = "manifest.json"

// BuildManifest is the record of one build's inputs and outputs.
type BuildManifest struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Inputs      Inputs    `json:"inputs"`
	Outputs     Outputs   `json:"outputs"`
	Status      string    `json:"status"`
	Duration    int64     `json:"duration_ms"`
	Diagnostics int       `json:"diagnostics"`
}

// Inputs captures the documents a build read.
type Inputs struct {
	ConfigHash string          `json:"config_hash"`
	Schemas    []string        `json:"schemas"`
	Documents  []DocumentInput `json:"documents"`
}

// DocumentInput is one source document.
type DocumentInput struct {
	Key         string `json:"key"`
	Kind        string `json:"kind"`
	DocType     string `json:"doc_type,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Failed      bool   `json:"failed,omitempty"`
}

// Outputs maps every written file to its fingerprint.
type Outputs struct {
	Files map[string]string `json:"files"`
}

// Fingerprint returns the mdfp fingerprint of a document made of a header
// and a body. Header line endings are normalized so the value is stable
// across platforms.
func Fingerprint(header, body string) string {
	header = strings.TrimSuffix(strings.ReplaceAll(header, "\r\n", "\n"), "\n")
	return mdfp.CalculateFingerprintFromParts(header, body)
}

// AddDocument records a source document.
func (m *BuildManifest) AddDocument(in DocumentInput) {
	m.Inputs.Documents = append(m.Inputs.Documents, in)
}

// AddOutput records a written file.
func (m *BuildManifest) AddOutput(path string, data []byte) {
	if m.Outputs.Files == nil {
		m.Outputs.Files = make(map[string]string)
	}
	m.Outputs.Files[path] = Fingerprint("", string(data))
}

// Sort orders the document inputs by key.
func (m *BuildManifest) Sort() {
	sort.Slice(m.Inputs.Documents, func(i, j int) bool {
		return m.Inputs.Documents[i].Key < m.Inputs.Documents[j].Key
	})
	sort.Strings(m.Inputs.Schemas)
}

// ToJSON serializes the manifest to JSON.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Hash computes a deterministic hash of the manifest's inputs. Two builds
// with the same hash read identical documents with identical configuration.
func (m *BuildManifest) Hash() (string, error) {
	docs := append([]DocumentInput(nil), m.Inputs.Documents...)
	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
	schemas := append([]string(nil), m.Inputs.Schemas...)
	sort.Strings(schemas)

	hashInput := struct {
		ConfigHash string          `json:"config_hash"`
		Schemas    []string        `json:"schemas"`
		Documents  []DocumentInput `json:"documents"`
	}{
		ConfigHash: m.Inputs.ConfigHash,
		Schemas:    schemas,
		Documents:  docs,
	}

	data, err := json.Marshal(hashInput)
	if err != nil {
		return "", fmt.Errorf("marshal hash input: %w", err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum), nil
}

// Changed returns the output paths whose fingerprint differs from prev,
// including paths prev does not have, sorted.
func (m *BuildManifest) Changed(prev *BuildManifest) []string {
	var out []string
	for path, fp := range m.Outputs.Files {
		if prev == nil || prev.Outputs.Files[path] != fp {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}
