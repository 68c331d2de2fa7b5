package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const messy = "[phases]\nA,arrow,0,0,10,10,4\n\n[image]\nfile=site.png\n[mappings]\nA=2\nbroken\n"

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestCheck(t *testing.T) {
	good := writeTemp(t, "good.layout", "[phases]\nA,Arrow,0,0,10,10,4\n")
	var out bytes.Buffer
	require.NoError(t, runCheck(&out, []string{good}))
	assert.Contains(t, out.String(), "1 phases")

	bad := writeTemp(t, "bad.layout", messy)
	out.Reset()
	assert.ErrorIs(t, runCheck(&out, []string{bad}), errSkipped)
	assert.Contains(t, out.String(), "line 8")

	assert.Error(t, runCheck(&out, nil))
}

func TestFmtWritesCanonicalText(t *testing.T) {
	p := writeTemp(t, "site.layout", messy)

	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { copyToClipboard = orig })

	var out bytes.Buffer
	require.NoError(t, runFmt(&out, []string{"-w", "-copy", p}))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	want := "[image]\nfile=site.png\n\n[phases]\nA,Arrow,0,0,10,10,4,turn=35,edited=0\n\n[detectors]\n\n[text]\n\n[mappings]\nA=2\n"
	assert.Equal(t, want, string(data))
	assert.Equal(t, want, copied)
	assert.Contains(t, out.String(), "dropped 1")
}

func TestRenderWithoutPicture(t *testing.T) {
	p := writeTemp(t, "site.layout", "[phases]\nA,Arrow,0,0,100,100,4\n")
	outPNG := filepath.Join(filepath.Dir(p), "out.png")

	var out bytes.Buffer
	require.NoError(t, runRender(&out, []string{"-width", "512", "-o", outPNG, p}))
	assert.Contains(t, out.String(), "no background")

	f, err := os.Open(outPNG)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Width)
	assert.Equal(t, 384, cfg.Height)
}

func TestRenderUsesPicture(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 30))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.png"), buf.Bytes(), 0o644))
	p := filepath.Join(dir, "site.layout")
	require.NoError(t, os.WriteFile(p, []byte("[image]\nfile=site.png\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, runRender(&out, []string{p}))

	f, err := os.Open(filepath.Join(dir, "site.preview.png"))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
}

func TestImport(t *testing.T) {
	cpf := writeTemp(t, "site.xml", `<CPF><Table Name="XSG">`+
		`<Column Name="Name"><Data>A</Data><Data>B</Data></Column>`+
		`<Column Name="LampSymbol"><Data>Left_Arrow</Data><Data>Default</Data></Column>`+
		`</Table></CPF>`)
	p := writeTemp(t, "site.layout", "[phases]\nA,Arrow,0,0,10,10,4\n")

	var out bytes.Buffer
	require.NoError(t, runImport(&out, []string{"-defs", cpf, p}))
	assert.Contains(t, out.String(), "A,Left_Arrow,0,0,10,10,4")
	assert.Contains(t, out.String(), "[mappings]\nA=0\nB=1\n")

	assert.Error(t, runImport(&out, []string{p}))
}

func TestHash(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runHash(&out, []string{"secret"}))
	hash := bytes.TrimSpace(out.Bytes())
	assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("secret")))
	assert.Error(t, runHash(&out, nil))
}
