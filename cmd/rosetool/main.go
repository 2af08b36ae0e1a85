// rosetool is a CLI utility for inspecting and converting ROSE Online data.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/Faultbox/roseimport/internal/assets"
	"github.com/Faultbox/roseimport/internal/config"
	"github.com/Faultbox/roseimport/internal/export"
	"github.com/Faultbox/roseimport/internal/logger"
	"github.com/Faultbox/roseimport/internal/mapload"
	"github.com/Faultbox/roseimport/pkg/formats"
)

var spewConfig = &spew.ConfigState{
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "dump":
		cmdDump(args)
	case "list", "ls":
		cmdList(args)
	case "map":
		cmdMap(args)
	case "gltf":
		cmdGLTF(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rosetool - ROSE Online data utility

Usage:
  rosetool <command> [options]

Commands:
  info <file>                  Show a summary of a ZMD/ZMS/ZMO/ZSC/HIM/TIL/IFO/CHR file
  dump <file>                  Print every parsed field of a file
  list [pattern]               List files under the data root
  map                          Load the configured map tile range
  gltf <file> [output]         Export a ZMS mesh, ZSC model or CHR character to glTF

Common options:
  -config <file>   Config file (default: ./rosetool.yaml)
  -root <dir>      Extracted ROSE data directory
  -debug           Enable debug logging

Files are looked up under the data root first, then on disk.

Examples:
  rosetool info -root ./data 3DDATA/NPC/MALE.ZMD
  rosetool list -root ./data "3DDATA/MAPS/JUNON/JDT01/*.HIM"
  rosetool map -root ./data -workers 8
  rosetool gltf -root ./data -model 12 3DDATA/JUNON/LIST_CNST_JDT.ZSC junon_12.glb
  rosetool gltf -root ./data -char 1 -catalog 3DDATA/NPC/PART_NPC.ZSC 3DDATA/NPC/LIST_NPC.CHR`)
}

// setup parses the shared flags, loads config, starts logging and opens the
// data root. Command-specific flags must be registered on fs beforehand.
func setup(fs *flag.FlagSet, args []string) (*config.Config, *assets.Manager) {
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	src := assets.NewManager()
	for _, root := range append([]string{cfg.Data.Root}, cfg.Data.Overlays...) {
		if err := src.AddRoot(root); err != nil {
			fatal(err)
		}
		logger.Debug("data root indexed", zap.String("root", root))
	}
	return cfg, src
}

func fatal(err error) {
	logger.Error("command failed", zap.Error(err))
	logger.Sync()
	os.Exit(1)
}

// readAsset reads name from the data root, falling back to the local disk.
func readAsset(src *assets.Manager, name string) ([]byte, error) {
	if src.Contains(name) {
		return src.Read(name)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", formats.ErrIO, err)
	}
	return data, nil
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	_, src := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rosetool info <file>")
		os.Exit(1)
	}

	for _, name := range fs.Args() {
		asset, err := loadAsset(src, name)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("File: %s\n", name)
		printSummary(os.Stdout, asset)
		fmt.Println()
	}
}

func cmdDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	_, src := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rosetool dump <file>")
		os.Exit(1)
	}

	asset, err := loadAsset(src, fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	fmt.Print(spewConfig.Sdump(asset))
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	summary := fs.Bool("summary", false, "Print file counts by extension instead")
	_, src := setup(fs, args)
	defer logger.Sync()

	if *summary {
		printExtCounts(src.CountByExt())
		return
	}

	files := src.List()
	if fs.NArg() > 0 {
		var err error
		files, err = src.Glob(fs.Arg(0))
		if err != nil {
			fatal(err)
		}
	}

	for i, f := range files {
		if *limit > 0 && i >= *limit {
			break
		}
		fmt.Println(f)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "\n(%d files matched)\n", len(files))
	}
}

func printExtCounts(counts map[string]int) {
	type extStat struct {
		ext   string
		count int
	}
	var stats []extStat
	total := 0
	for ext, count := range counts {
		stats = append(stats, extStat{ext, count})
		total += count
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].ext < stats[j].ext
	})

	fmt.Printf("Files: %d\n\n", total)
	for _, s := range stats {
		fmt.Printf("  %-10s %d\n", s.ext, s.count)
	}
}

func cmdMap(args []string) {
	fs := flag.NewFlagSet("map", flag.ExitOnError)
	cfg, src := setup(fs, args)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loader := mapload.New(src, cfg.Map, cfg.Workers, logger.Named("mapload"))
	m, err := loader.Load(ctx)
	if err != nil {
		fatal(err)
	}
	printMap(os.Stdout, m)
}

// gltfOptions selects what cmdGLTF exports from its input file.
type gltfOptions struct {
	model    int    // ZSC model index, -1 for all
	skeleton string // ZMD for a skinned ZMS
	motion   string // ZMO played on skeleton
	char     int    // CHR character index, -1 for all
	catalog  string // ZSC holding the CHR models
}

func cmdGLTF(args []string) {
	fs := flag.NewFlagSet("gltf", flag.ExitOnError)
	var opts gltfOptions
	fs.IntVar(&opts.model, "model", -1, "ZSC model index to export (default: all)")
	fs.StringVar(&opts.skeleton, "skeleton", "", "ZMD skeleton for a skinned ZMS")
	fs.StringVar(&opts.motion, "motion", "", "ZMO motion to play on -skeleton")
	fs.IntVar(&opts.char, "char", -1, "CHR character index to export (default: all enabled)")
	fs.StringVar(&opts.catalog, "catalog", "", "ZSC model catalog referenced by a CHR file")
	cfg, src := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rosetool gltf [options] <file.zms|file.zsc|file.chr> [output]")
		os.Exit(1)
	}

	input := fs.Arg(0)
	output := fs.Arg(1)
	if output == "" {
		ext := ".gltf"
		if cfg.Export.Binary {
			ext = ".glb"
		}
		output = filepath.Join(cfg.Export.OutDir, strings.ToLower(baseName(input))+ext)
	}

	e := export.New(logger.Named("export"))
	if err := exportAsset(e, src, input, opts); err != nil {
		fatal(err)
	}
	if err := e.Save(output); err != nil {
		fatal(err)
	}

	hits, misses := src.Stats()
	logger.Debug("asset cache", zap.Int("hits", hits), zap.Int("misses", misses))

	doc := e.Document()
	fmt.Printf("Wrote %s (%d meshes, %d materials, %d nodes, %d animations)\n",
		output, len(doc.Meshes), len(doc.Materials), len(doc.Nodes), len(doc.Animations))
}

func exportAsset(e *export.Exporter, src *assets.Manager, input string, opts gltfOptions) error {
	asset, err := loadAsset(src, input)
	if err != nil {
		return err
	}

	switch a := asset.(type) {
	case *formats.ZMS:
		return exportMesh(e, src, input, a, opts)

	case *formats.ZSC:
		if opts.model >= 0 {
			_, err := e.AddModel(fmt.Sprintf("Model_%d", opts.model), a, opts.model, src)
			return err
		}
		for i := range a.Models {
			if a.Models[i].Empty() {
				continue
			}
			if _, err := e.AddModel(fmt.Sprintf("Model_%d", i), a, i, src); err != nil {
				return err
			}
		}
		return nil

	case *formats.CHR:
		if opts.catalog == "" {
			return errors.New("CHR export needs -catalog with the character model ZSC")
		}
		catalog, err := loadTyped[*formats.ZSC](src, opts.catalog)
		if err != nil {
			return err
		}
		if opts.char >= 0 {
			_, err := e.AddCharacter(fmt.Sprintf("Char_%d", opts.char), a, opts.char, catalog, src)
			return err
		}
		for i := range a.Characters {
			if !a.Characters[i].Enabled {
				continue
			}
			if _, err := e.AddCharacter(fmt.Sprintf("Char_%d", i), a, i, catalog, src); err != nil {
				return err
			}
		}
		return nil

	default:
		return errors.New("gltf export supports ZMS, ZSC and CHR files")
	}
}

func exportMesh(e *export.Exporter, src *assets.Manager, input string, zms *formats.ZMS, opts gltfOptions) error {
	name := baseName(input)
	if opts.skeleton == "" {
		if opts.motion != "" {
			return errors.New("-motion needs -skeleton")
		}
		e.AddMeshNode(name, e.AddMesh(name, zms, nil))
		return nil
	}

	zmd, err := loadTyped[*formats.ZMD](src, opts.skeleton)
	if err != nil {
		return err
	}
	skel := e.AddSkeleton(baseName(opts.skeleton), zmd)
	if zms.HasSkin() {
		if _, err := e.AddSkinnedMesh(name, zms, nil, skel); err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}
	} else {
		logger.Warn("mesh has no bone weights; skeleton exported unbound",
			zap.String("mesh", input))
		e.AddMeshNode(name, e.AddMesh(name, zms, nil))
	}

	if opts.motion != "" {
		zmo, err := loadTyped[*formats.ZMO](src, opts.motion)
		if err != nil {
			return err
		}
		if _, err := e.AddAnimation(baseName(opts.motion), zmo, skel); err != nil {
			return fmt.Errorf("%s: %w", opts.motion, err)
		}
	}
	return nil
}
