// gmatool is a CLI utility for inspecting, verifying and converting GMA
// model archives.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/gmakit/internal/assets"
	"github.com/Faultbox/gmakit/internal/config"
	"github.com/Faultbox/gmakit/internal/logger"
	"github.com/Faultbox/gmakit/pkg/export"
	"github.com/Faultbox/gmakit/pkg/gma"
)

var errUsage = errors.New("usage")

func main() {
	config.ParseFlags()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command, rest := args[0], args[1:]
	if err := run(cfg, command, rest, os.Stdout); err != nil {
		if err != errUsage {
			logger.Error("command failed", zap.String("command", command), zap.Error(err))
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, command string, args []string, out io.Writer) error {
	switch command {
	case "info":
		return cmdInfo(args, out)
	case "dump":
		return cmdDump(cfg, args, out)
	case "verify":
		return cmdVerify(args, out)
	case "export", "x":
		return cmdExport(cfg, args, out)
	case "rebuild":
		return cmdRebuild(args, out)
	case "find":
		return cmdFind(args, out)
	case "config":
		return cmdConfig(cfg, args, out)
	case "help", "-h", "--help":
		printUsage()
		return nil
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
	printUsage()
	return errUsage
}

func printUsage() {
	fmt.Println(`gmatool - GMA model archive utility

Usage:
  gmatool [-config file] [-debug] [-log-file file] <command> [options]

Commands:
  info <file.gma>                         Show slots and object statistics
  dump <file.gma> [slot|name]             Dump decoded objects
  verify <file.gma>                       Decode, re-encode and compare bytes
  export [-format obj|gltf] [-out dir] [-binary] <file.gma>
                                          Convert to OBJ or glTF
  rebuild <in.gma> <out.gma>              Recompute bounding spheres and rewrite
  find <name> <file.gma>...               Locate an entry; later archives win
  config [-save] [-o file]                Print or save the effective config

Examples:
  gmatool info stage01.gma
  gmatool dump stage01.gma BALL_00
  gmatool export -format gltf -out ./models stage01.gma`)
}

func usageError(usage string) error {
	fmt.Fprintln(os.Stderr, "Usage: gmatool "+usage)
	return errUsage
}

func openArchive(path string) (*gma.Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	logger.Debug("opening archive", zap.String("path", path), zap.Int("size", len(data)))
	a, err := gma.DecodeBytes(data, gma.WithLogger(logger.Named("gma")))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return a, nil
}

func precision(o *gma.Object) string {
	if o.Is16Bit {
		return "16-bit"
	}
	return "32-bit"
}

func cmdInfo(args []string, out io.Writer) error {
	if len(args) < 1 {
		return usageError("info <file.gma>")
	}

	a, err := openArchive(args[0])
	if err != nil {
		return err
	}

	entries := 0
	for _, s := range a.Slots() {
		if _, ok := s.(*gma.Entry); ok {
			entries++
		}
	}

	logger.Sugar.Debugf("%s: %d of %d slots hold entries", args[0], entries, a.Len())

	fmt.Fprintf(out, "Archive: %s\n", args[0])
	fmt.Fprintf(out, "Slots:   %d (%d empty)\n", a.Len(), a.Len()-entries)
	fmt.Fprintf(out, "Size:    %d bytes\n", a.SizeOf())
	fmt.Fprintln(out)

	for i, s := range a.Slots() {
		e, ok := s.(*gma.Entry)
		if !ok {
			fmt.Fprintf(out, "  %3d  (empty)\n", i)
			continue
		}
		st := e.Object.Stats()
		fmt.Fprintf(out, "  %3d  %-24s %s  meshes=%d strips=%d indexed=%d vertices=%d pool=%d matrices=%d size=%d\n",
			i, e.Name, precision(e.Object), st.Meshes, st.Strips, st.IndexedStrips,
			st.StripVertices, st.PoolVertices, st.Matrices, e.Object.SizeOf())
	}
	return nil
}

// selectEntries resolves a slot index or entry name; an empty selector
// selects every entry.
func selectEntries(a *gma.Archive, selector string) ([]*gma.Entry, error) {
	if selector == "" {
		var all []*gma.Entry
		for _, s := range a.Slots() {
			if e, ok := s.(*gma.Entry); ok {
				all = append(all, e)
			}
		}
		return all, nil
	}
	if i, err := strconv.Atoi(selector); err == nil {
		if i < 0 || i >= a.Len() {
			return nil, errors.Errorf("slot %d out of range (archive has %d)", i, a.Len())
		}
		e, ok := a.Slot(i).(*gma.Entry)
		if !ok {
			return nil, errors.Errorf("slot %d is empty", i)
		}
		return []*gma.Entry{e}, nil
	}
	e, ok := a.Entry(selector)
	if !ok {
		return nil, errors.Errorf("no entry named %q", selector)
	}
	return []*gma.Entry{e}, nil
}

func cmdDump(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	maxVerts := fs.Int("n", cfg.Dump.MaxVertices, "Vertices printed per strip (0 = all)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		return usageError("dump [-n N] <file.gma> [slot|name]")
	}

	a, err := openArchive(fs.Arg(0))
	if err != nil {
		return err
	}
	entries, err := selectEntries(a, fs.Arg(1))
	if err != nil {
		return err
	}
	for _, e := range entries {
		dumpEntry(out, e, *maxVerts)
	}
	return nil
}

func cmdVerify(args []string, out io.Writer) error {
	if len(args) < 1 {
		return usageError("verify <file.gma>")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	a, err := gma.DecodeBytes(data, gma.WithLogger(logger.Named("gma")))
	if err != nil {
		return errors.Wrapf(err, "decoding %s", args[0])
	}
	again, err := a.EncodeBytes()
	if err != nil {
		return errors.Wrap(err, "re-encoding")
	}

	if !bytes.Equal(data, again) {
		n := min(len(data), len(again))
		at := n
		for i := 0; i < n; i++ {
			if data[i] != again[i] {
				at = i
				break
			}
		}
		logger.Warn("round trip mismatch",
			zap.String("path", args[0]),
			zap.Int("offset", at),
			zap.Int("in", len(data)),
			zap.Int("out", len(again)))
		return errors.Errorf("%s: re-encoded archive differs at offset 0x%x (%d bytes in, %d bytes out)",
			args[0], at, len(data), len(again))
	}

	fmt.Fprintf(out, "%s: OK (%d slots, %d bytes)\n", args[0], a.Len(), len(data))
	return nil
}

func cmdExport(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "", "Output format: obj or gltf")
	outDir := fs.String("out", "", "Output directory")
	binary := fs.Bool("binary", cfg.Export.BinaryGLTF, "Write binary glTF (.glb)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		return usageError("export [-format obj|gltf] [-out dir] [-binary] <file.gma>")
	}

	settings := cfg.Export
	settings.Override(*format, *outDir)
	f, err := export.ParseFormat(settings.Format)
	if err != nil {
		return err
	}

	a, err := openArchive(fs.Arg(0))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(settings.OutputDir, 0755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	base := strings.TrimSuffix(filepath.Base(fs.Arg(0)), filepath.Ext(fs.Arg(0)))
	outPath := filepath.Join(settings.OutputDir, base+f.Extension(*binary))

	switch f {
	case export.FormatOBJ:
		err = exportOBJ(a, outPath)
	case export.FormatGLTF:
		err = exportGLTF(a, outPath, *binary)
	}
	if err != nil {
		return err
	}

	logger.Info("exported archive", zap.String("path", outPath), zap.String("format", string(f)))
	fmt.Fprintf(out, "Exported: %s\n", outPath)
	return nil
}

func exportOBJ(a *gma.Archive, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := export.NewOBJWriter(file)
	if err := a.Render(w); err != nil {
		return errors.Wrap(err, "rendering")
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	logger.Debug("wrote OBJ", zap.Int("objects", w.Objects), zap.Int("faces", w.Faces))
	return file.Close()
}

func exportGLTF(a *gma.Archive, path string, binary bool) error {
	b := export.NewGLTFBuilder()
	if err := a.Render(b); err != nil {
		return errors.Wrap(err, "rendering")
	}
	return b.Save(path, binary)
}

func cmdRebuild(args []string, out io.Writer) error {
	if len(args) < 2 {
		return usageError("rebuild <in.gma> <out.gma>")
	}

	a, err := openArchive(args[0])
	if err != nil {
		return err
	}
	for _, s := range a.Slots() {
		if e, ok := s.(*gma.Entry); ok {
			e.Object.UpdateBoundingSphere()
			logger.Debug("bounding sphere",
				zap.String("entry", e.Name),
				zap.Float32("radius", e.Object.BoundingSphere.Radius))
		}
	}

	data, err := a.EncodeBytes()
	if err != nil {
		return errors.Wrap(err, "encoding")
	}
	if err := os.WriteFile(args[1], data, 0644); err != nil {
		return err
	}
	fmt.Fprintf(out, "Rebuilt: %s (%d bytes)\n", args[1], len(data))
	return nil
}

func cmdFind(args []string, out io.Writer) error {
	if len(args) < 2 {
		return usageError("find <name> <file.gma>...")
	}

	m := assets.NewManager(logger.Named("gma"))
	defer m.Close()
	for _, path := range args[1:] {
		if err := m.AddArchive(path); err != nil {
			return err
		}
	}

	logger.Debug("searching archives", zap.String("name", args[0]), zap.Int("archives", m.Len()))
	f, err := m.Lookup(args[0])
	if err != nil {
		return err
	}
	st := f.Entry.Object.Stats()
	fmt.Fprintf(out, "%s: %s slot %d (%s, %d meshes)\n",
		f.Entry.Name, f.Archive, f.Slot, precision(f.Entry.Object), st.Meshes)
	return nil
}

func cmdConfig(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	save := fs.Bool("save", false, "Save to the user config directory")
	path := fs.String("o", "", "Save to this file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	switch {
	case *path != "":
		if err := cfg.SaveTo(*path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved: %s\n", *path)
	case *save:
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved: %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	default:
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}
	return nil
}
