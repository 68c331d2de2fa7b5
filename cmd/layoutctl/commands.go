package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/siteview/siteview/backend-go/internal/asset"
	"github.com/siteview/siteview/backend-go/internal/auth"
	"github.com/siteview/siteview/backend-go/internal/codec"
	"github.com/siteview/siteview/backend-go/internal/definitions"
	"github.com/siteview/siteview/backend-go/internal/document"
	"github.com/siteview/siteview/backend-go/internal/engine"
	"github.com/siteview/siteview/backend-go/internal/render"
)

var errSkipped = errors.New("some records were skipped")

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

func readLayout(path string) (*document.Document, []codec.Skipped, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return codec.ParseDetailed(f)
}

// writeFile replaces path through a temporary file in the same directory.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".layoutctl-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func runCheck(out io.Writer, args []string) error {
	if len(args) == 0 {
		return errors.New("check: no files")
	}
	failed := false
	for _, path := range args {
		doc, skipped, err := readLayout(path)
		if err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", errStyle.Render("FAIL"), path, err)
			failed = true
			continue
		}
		status := okStyle.Render("ok")
		if len(skipped) > 0 {
			status = warnStyle.Render("warn")
			failed = true
		}
		fmt.Fprintf(out, "%s %s %s\n", status, titleStyle.Render(path),
			faintStyle.Render(fmt.Sprintf("(%d phases, %d detectors, %d texts, %d mappings)",
				len(doc.Phases), len(doc.Detectors), len(doc.Texts), doc.Positions.Len())))
		for _, s := range skipped {
			fmt.Fprintf(out, "  line %d [%s] %s: %s\n", s.Line, s.Section, s.Reason, faintStyle.Render(s.Text))
		}
	}
	if failed {
		return errSkipped
	}
	return nil
}

func runFmt(out io.Writer, args []string) error {
	fs := newFlags("fmt")
	write := fs.Bool("w", false, "write result to the file instead of stdout")
	copyOut := fs.Bool("copy", false, "also copy the result to the clipboard")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("fmt: expected one file")
	}
	path := fs.Arg(0)

	doc, skipped, err := readLayout(path)
	if err != nil {
		return err
	}
	text := codec.Serialize(doc)

	if *copyOut {
		if err := copyToClipboard(text); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
	}
	if *write {
		if err := writeFile(path, []byte(text)); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", okStyle.Render("formatted"), path)
		if len(skipped) > 0 {
			fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("dropped %d unreadable records", len(skipped))))
		}
		return nil
	}
	_, err = io.WriteString(out, text)
	return err
}

func runRender(out io.Writer, args []string) error {
	fs := newFlags("render")
	picture := fs.String("image", "", "background picture (defaults to the layout's file next to it)")
	width := fs.Int("width", 0, "output width in pixels (0 keeps the picture size)")
	output := fs.String("o", "", "output PNG (defaults to FILE.preview.png)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("render: expected one file")
	}
	path := fs.Arg(0)

	doc, _, err := readLayout(path)
	if err != nil {
		return err
	}

	if *picture == "" {
		*picture = filepath.Join(filepath.Dir(path), doc.ImageFile)
	}
	imageSize := engine.Size{W: 1024, H: 768}
	var bg image.Image
	img, err := asset.NewHandler(filepath.Dir(*picture)).Load(filepath.Base(*picture))
	if err != nil {
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("no background: %v", err)))
	} else {
		bg = img
		b := img.Bounds()
		imageSize = engine.Size{W: float64(b.Dx()), H: float64(b.Dy())}
	}

	size := imageSize
	if *width > 0 {
		size = engine.Size{W: float64(*width), H: float64(*width) * imageSize.H / imageSize.W}
	}

	if *output == "" {
		*output = strings.TrimSuffix(path, filepath.Ext(path)) + ".preview.png"
	}
	var buf bytes.Buffer
	if err := render.WritePNG(&buf, bg, imageSize, size, doc); err != nil {
		return err
	}
	if err := writeFile(*output, buf.Bytes()); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", okStyle.Render("rendered"), *output)
	return nil
}

func runImport(out io.Writer, args []string) error {
	fs := newFlags("import")
	defsPath := fs.String("defs", "", "controller configuration export (CPF/XML)")
	write := fs.Bool("w", false, "write result to the file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *defsPath == "" {
		return errors.New("import: expected -defs and one file")
	}
	path := fs.Arg(0)

	f, err := os.Open(*defsPath)
	if err != nil {
		return err
	}
	defer f.Close()
	defs, err := definitions.Import(f)
	if err != nil {
		return err
	}

	doc, _, err := readLayout(path)
	if err != nil {
		return err
	}
	retyped := defs.Apply(doc)
	text := codec.Serialize(doc)

	if !*write {
		_, err = io.WriteString(out, text)
		return err
	}
	if err := writeFile(path, []byte(text)); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s %s\n", okStyle.Render("imported"), path,
		faintStyle.Render(fmt.Sprintf("(%d phases, %d detectors, %d retyped)", len(defs.Phases), len(defs.Detectors), retyped)))
	return nil
}

func runHash(out io.Writer, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("hash: expected one password")
	}
	hash, err := auth.HashPassword(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hash)
	return nil
}
