package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleManifest() *BuildManifest {
	m := &BuildManifest{
		ID:        "build-123",
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Inputs: Inputs{
			ConfigHash: "config-hash-123",
			Schemas:    []string{"ManagedReference", "Conceptual"},
		},
		Status:   "success",
		Duration: 5000,
	}
	m.AddDocument(DocumentInput{Key: "b.yml", Kind: "content", DocType: "ManagedReference", Fingerprint: Fingerprint("", "b")})
	m.AddDocument(DocumentInput{Key: "a.md", Kind: "conceptual", Fingerprint: Fingerprint("uid: a", "body")})
	m.AddOutput("a.json", []byte(`{"uid":"a"}`))
	return m
}

func TestManifestSerialization(t *testing.T) {
	m := sampleManifest()

	data, err := m.ToJSON()
	require.NoError(t, err)

	restored, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, m.ID, restored.ID)
	assert.True(t, m.Timestamp.Equal(restored.Timestamp))
	assert.Equal(t, m.Inputs, restored.Inputs)
	assert.Equal(t, m.Outputs, restored.Outputs)
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := FromJSON([]byte("{"))
	assert.Error(t, err)
}

func TestManifestHash_IgnoresOrderAndOutputs(t *testing.T) {
	a := sampleManifest()
	b := sampleManifest()
	b.Sort()
	b.ID = "other"
	b.AddOutput("extra.json", []byte("x"))

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	b.Inputs.ConfigHash = "changed"
	hc, err := b.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestFingerprint_NormalizesHeaderNewlines(t *testing.T) {
	assert.Equal(t, Fingerprint("uid: a\n", "body"), Fingerprint("uid: a\r\n", "body"))
	assert.NotEqual(t, Fingerprint("uid: a", "body"), Fingerprint("uid: b", "body"))
}

func TestChanged(t *testing.T) {
	prev := &BuildManifest{}
	prev.AddOutput("a.json", []byte("1"))
	prev.AddOutput("b.json", []byte("2"))

	cur := &BuildManifest{}
	cur.AddOutput("a.json", []byte("1"))
	cur.AddOutput("b.json", []byte("changed"))
	cur.AddOutput("c.json", []byte("3"))

	assert.Equal(t, []string{"b.json", "c.json"}, cur.Changed(prev))
	assert.Equal(t, []string{"a.json", "b.json", "c.json"}, cur.Changed(nil))
}
