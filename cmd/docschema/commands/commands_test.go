package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docschema/internal/config"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
)

const testConfig = `version: "1.0"
input:
  root: ./docs
schemas:
  directory: ./schemas
output:
  directory: ./_site
  clean: true
store:
  path: ./.docschema/xref.db
`

const testSchema = `
title: Ref
description: API reference
type: object
properties:
  uid:
    type: string
    contentType: uid
  name:
    type: string
xrefProperties:
  - name
`

type project struct {
	dir    string
	config string
	stdout *bytes.Buffer
}

func newProject(t *testing.T) *project {
	t.Helper()
	p := &project{dir: t.TempDir(), stdout: &bytes.Buffer{}}
	p.config = filepath.Join(p.dir, "docschema.yaml")
	p.write(t, "docschema.yaml", testConfig)
	p.write(t, "schemas/Ref.schema.yml", testSchema)
	p.write(t, "docs/a.yml", "### YamlMime:Ref\nuid: A\nname: Alpha\n")
	return p
}

func (p *project) write(t *testing.T, rel, data string) {
	t.Helper()
	path := filepath.Join(p.dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func (p *project) global() *Global { return &Global{Stdout: p.stdout} }

func (p *project) cli() *CLI { return &CLI{Config: p.config} }

func TestInitCmd(t *testing.T) {
	dir := t.TempDir()
	root := &CLI{Config: filepath.Join(dir, "docschema.yaml")}
	out := &bytes.Buffer{}

	require.NoError(t, (&InitCmd{}).Run(&Global{Stdout: out}, root))
	assert.Contains(t, out.String(), "Wrote configuration")
	cfg, err := config.Load(root.Config)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "docs"), cfg.Input.Root)

	err = (&InitCmd{}).Run(&Global{Stdout: out}, root)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	require.NoError(t, (&InitCmd{Force: true}).Run(&Global{Stdout: out}, root))
}

func TestBuildCmd(t *testing.T) {
	p := newProject(t)

	require.NoError(t, (&BuildCmd{}).Run(p.global(), p.cli()))
	assert.Contains(t, p.stdout.String(), ": success")
	assert.FileExists(t, filepath.Join(p.dir, "_site", "a.json"))
	assert.FileExists(t, filepath.Join(p.dir, "_site", "xrefmap.json"))
	assert.FileExists(t, filepath.Join(p.dir, ".docschema", "xref.db"))
}

func TestBuildCmd_OutputOverrideAndDryRun(t *testing.T) {
	p := newProject(t)
	out := filepath.Join(p.dir, "elsewhere")

	require.NoError(t, (&BuildCmd{Output: out, DryRun: true}).Run(p.global(), p.cli()))
	assert.NoDirExists(t, out)

	require.NoError(t, (&BuildCmd{Output: out}).Run(p.global(), p.cli()))
	assert.FileExists(t, filepath.Join(out, "a.json"))
}

func TestBuildCmd_FailedBuildIsAnError(t *testing.T) {
	p := newProject(t)
	p.write(t, "docs/b.yml", "### YamlMime:Unknown\nuid: B\n")

	err := (&BuildCmd{}).Run(p.global(), p.cli())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryBuild))
	assert.Contains(t, p.stdout.String(), ": failed")
	assert.Contains(t, p.stdout.String(), "failed: 1")
}

func TestBuildCmd_MissingConfig(t *testing.T) {
	err := (&BuildCmd{}).Run(&Global{}, &CLI{Config: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestSchemaCmd(t *testing.T) {
	p := newProject(t)

	require.NoError(t, (&SchemaCmd{}).Run(p.global(), p.cli()))
	out := p.stdout.String()
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "Ref")
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "API reference")
}

func TestSchemaCmd_Dir(t *testing.T) {
	p := newProject(t)

	require.NoError(t, (&SchemaCmd{Dir: filepath.Join(p.dir, "schemas")}).Run(p.global(), &CLI{}))
	assert.Contains(t, p.stdout.String(), "Ref")
}

func TestWatchSession_ReloadsConfiguration(t *testing.T) {
	p := newProject(t)
	g := p.global()
	cfg, err := loadConfig(g, p.cli())
	require.NoError(t, err)

	s := &watchSession{global: g, configPath: p.config, cfg: cfg, svc: newBuildService(g, cfg)}
	s.build(context.Background())
	first := s.lastBuildID
	require.NotEmpty(t, first)

	p.write(t, "docschema.yaml", testConfig+"build:\n  fail_on_warnings: true\n")
	abs, err := filepath.Abs(p.config)
	require.NoError(t, err)
	s.rebuild(context.Background(), []string{abs})

	assert.True(t, s.cfg.Build.FailOnWarnings)
	assert.NotEqual(t, first, s.lastBuildID)
}

func TestWatchSession_KeepsConfigurationOnError(t *testing.T) {
	p := newProject(t)
	g := p.global()
	cfg, err := loadConfig(g, p.cli())
	require.NoError(t, err)

	s := &watchSession{global: g, configPath: p.config, cfg: cfg, svc: newBuildService(g, cfg)}
	p.write(t, "docschema.yaml", "version: \"0.1\"\n")
	abs, err := filepath.Abs(p.config)
	require.NoError(t, err)
	s.rebuild(context.Background(), []string{abs})

	assert.Same(t, cfg, s.cfg)
	assert.NotEmpty(t, s.lastBuildID)
}

func TestDocumentKey(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "docs")
	tests := []struct {
		path string
		key  string
		ok   bool
	}{
		{filepath.Join(root, "api", "a.yml"), "api/a.yml", true},
		{root, "", false},
		{filepath.Join(root, "..", "schemas", "Ref.schema.yml"), "", false},
	}
	for _, tt := range tests {
		key, ok := documentKey(root, tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.key, key, tt.path)
	}
}
