package build

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docschema/internal/config"
	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/docset"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/logfields"
	"git.home.luguber.info/inful/docschema/internal/manifest"
	"git.home.luguber.info/inful/docschema/internal/xref"
)

// XRefMapFile is the name of the exported cross-reference map.
const XRefMapFile = "xrefmap.json"

// PageModel is the output written for one document.
type PageModel struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	DocType string `json:"doc_type,omitempty"`
	Href    string `json:"href"`
	Model   any    `json:"model"`
}

// XRefMap is the exported cross-reference map.
type XRefMap struct {
	BuildID    string           `json:"build_id"`
	References []*xref.XRefSpec `json:"references"`
}

// ModelPath returns where the model of the document at key is written,
// relative to the output directory.
func ModelPath(key string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + ".json"
}

func (r *run) writeOutputs(context.Context) error {
	if r.opts.DryRun {
		return nil
	}
	out := r.cfg.Output.Directory
	if r.cfg.Output.Clean {
		if err := os.RemoveAll(out); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to clean output directory").
				WithContext("path", out).
				Build()
		}
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", out).
			Build()
	}

	m := &manifest.BuildManifest{
		ID:        r.result.BuildID,
		Timestamp: r.result.StartTime.UTC(),
		Inputs: manifest.Inputs{
			ConfigHash: configHash(r.cfg),
			Schemas:    r.schemas.Types(),
		},
	}

	for _, d := range r.docs {
		m.AddDocument(documentInput(d))
		if !d.IsBase() {
			continue
		}
		data, err := json.MarshalIndent(pageModel(d), "", "  ")
		if err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "failed to marshal page model").
				WithContext("file", d.Key).
				Build()
		}
		if err := r.writeFile(m, ModelPath(d.Key), data); err != nil {
			return err
		}
	}
	for _, f := range r.fragments {
		m.AddDocument(documentInput(f))
	}

	for _, f := range r.resources {
		// #nosec G304 -- path comes from walking the configured input root.
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to read resource").
				WithContext("file", f.Key).
				Build()
		}
		if err := r.writeFile(m, f.Key, data); err != nil {
			return err
		}
	}

	xrefs, err := json.MarshalIndent(XRefMap{BuildID: r.result.BuildID, References: r.xrefMap()}, "", "  ")
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal xref map").Build()
	}
	if err := r.writeFile(m, XRefMapFile, xrefs); err != nil {
		return err
	}

	m.Status = string(r.status(context.Background(), nil))
	m.Diagnostics = r.sink.Len()
	m.Duration = time.Since(r.result.StartTime).Milliseconds()
	m.Sort()
	data, err := m.ToJSON()
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal manifest").Build()
	}
	if err := writeFile(filepath.Join(out, manifest.FileName), data); err != nil {
		return err
	}
	r.logger.Info("Wrote outputs", logfields.Count(len(r.result.Written)), logfields.File(out))
	return nil
}

func (r *run) writeFile(m *manifest.BuildManifest, rel string, data []byte) error {
	if err := writeFile(filepath.Join(r.cfg.Output.Directory, filepath.FromSlash(rel)), data); err != nil {
		return err
	}
	m.AddOutput(rel, data)
	r.result.Written = append(r.result.Written, rel)
	return nil
}

func writeFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", filepath.Dir(p)).
			Build()
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write output file").
			WithContext("path", p).
			Build()
	}
	return nil
}

func pageModel(d *docset.Document) PageModel {
	p := PageModel{
		Source:  d.Key,
		Kind:    string(d.Kind),
		DocType: d.DocType,
		Href:    d.Context.OutputPath(),
	}
	if d.Kind == docset.KindConceptual {
		p.Model = d.Conceptual
	} else {
		p.Model = content.ToAny(d.Content)
	}
	return p
}

func documentInput(d *docset.Document) manifest.DocumentInput {
	header, body := "", string(d.Source)
	if d.Kind == docset.KindConceptual && d.Err == nil {
		header = strings.TrimSuffix(body, d.Body)
		body = d.Body
	}
	return manifest.DocumentInput{
		Key:         d.Key,
		Kind:        string(d.Kind),
		DocType:     d.DocType,
		Fingerprint: manifest.Fingerprint(header, body),
		Failed:      d.Err != nil,
	}
}

// xrefMap combines the internal xref specs of every built document. A uid
// exported by several documents keeps the properties of all of them, later
// documents winning.
func (r *run) xrefMap() []*xref.XRefSpec {
	byUID := make(map[string]*xref.XRefSpec)
	for _, d := range r.docs {
		if !d.IsBase() {
			continue
		}
		for _, spec := range d.Context.XRefSpecs {
			if existing, ok := byUID[spec.UID]; ok {
				for k, v := range spec.Properties {
					existing.Set(k, v)
				}
				continue
			}
			byUID[spec.UID] = spec.Clone()
		}
	}
	out := make([]*xref.XRefSpec, 0, len(byUID))
	for _, spec := range byUID {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

func configHash(cfg *config.Config) string {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
