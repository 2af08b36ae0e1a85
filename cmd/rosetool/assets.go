package main

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Faultbox/roseimport/internal/assets"
	"github.com/Faultbox/roseimport/internal/mapload"
	"github.com/Faultbox/roseimport/pkg/formats"
)

// parsers maps upper-case file extensions to their parser.
var parsers = map[string]func([]byte) (any, error){
	".ZMD": func(b []byte) (any, error) { return formats.ParseZMD(b) },
	".ZMS": func(b []byte) (any, error) { return formats.ParseZMS(b) },
	".ZMO": func(b []byte) (any, error) { return formats.ParseZMO(b) },
	".ZSC": func(b []byte) (any, error) { return formats.ParseZSC(b) },
	".HIM": func(b []byte) (any, error) { return formats.ParseHIM(b) },
	".TIL": func(b []byte) (any, error) { return formats.ParseTIL(b) },
	".IFO": func(b []byte) (any, error) { return formats.ParseIFO(b) },
	".CHR": func(b []byte) (any, error) { return formats.ParseCHR(b) },
}

// baseName returns the file name of a ROSE or local path without extension.
func baseName(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// parseAsset picks a parser by file extension.
func parseAsset(name string, data []byte) (any, error) {
	ext := strings.ToUpper(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	parse, ok := parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%s: unsupported file type %q", name, ext)
	}
	asset, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return asset, nil
}

func loadAsset(src *assets.Manager, name string) (any, error) {
	data, err := readAsset(src, name)
	if err != nil {
		return nil, err
	}
	return parseAsset(name, data)
}

// loadTyped loads name and checks it parsed to T.
func loadTyped[T any](src *assets.Manager, name string) (T, error) {
	var zero T
	asset, err := loadAsset(src, name)
	if err != nil {
		return zero, err
	}
	typed, ok := asset.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected file type %T", name, asset)
	}
	return typed, nil
}

func printSummary(w io.Writer, asset any) {
	switch a := asset.(type) {
	case *formats.ZMD:
		fmt.Fprintf(w, "Type:    skeleton (ZMD000%d)\n", a.Version)
		fmt.Fprintf(w, "Bones:   %d\n", len(a.Bones))
		fmt.Fprintf(w, "Dummies: %d\n", len(a.Dummies))
		for i, b := range a.Bones {
			fmt.Fprintf(w, "  [%3d] %-24s parent=%d\n", i, b.Name, a.ParentIndex(i))
		}

	case *formats.ZMS:
		fmt.Fprintf(w, "Type:     mesh (ZMS000%d)\n", a.Version)
		fmt.Fprintf(w, "Format:   %s\n", a.Format)
		fmt.Fprintf(w, "Vertices: %d\n", a.VertexCount())
		fmt.Fprintf(w, "Faces:    %d\n", a.FaceCount())
		fmt.Fprintf(w, "UVs:      %d\n", a.UVChannels())
		fmt.Fprintf(w, "Bones:    %d\n", len(a.Bones))
		fmt.Fprintf(w, "Bounds:   %v .. %v\n", a.BoundsMin, a.BoundsMax)

	case *formats.ZMO:
		fmt.Fprintf(w, "Type:     motion (ZMO)\n")
		fmt.Fprintf(w, "FPS:      %d\n", a.FPS)
		fmt.Fprintf(w, "Frames:   %d (%.2fs)\n", a.FrameCount, a.Duration())
		fmt.Fprintf(w, "Channels: %d\n", len(a.Channels))
		counts := map[formats.ChannelType]int{}
		for _, c := range a.Channels {
			counts[c.Type()]++
		}
		for _, t := range []formats.ChannelType{formats.ChannelPosition, formats.ChannelRotation, formats.ChannelScale} {
			if counts[t] > 0 {
				fmt.Fprintf(w, "  %-10s %d\n", t, counts[t])
			}
		}

	case *formats.ZSC:
		empty := 0
		for i := range a.Models {
			if a.Models[i].Empty() {
				empty++
			}
		}
		fmt.Fprintf(w, "Type:      scene catalog (ZSC)\n")
		fmt.Fprintf(w, "Meshes:    %d\n", len(a.Meshes))
		fmt.Fprintf(w, "Materials: %d\n", len(a.Materials))
		fmt.Fprintf(w, "Effects:   %d\n", len(a.Effects))
		fmt.Fprintf(w, "Models:    %d (%d empty)\n", len(a.Models), empty)

	case *formats.HIM:
		lo, hi := a.MinMax()
		fmt.Fprintf(w, "Type:    heightmap (HIM)\n")
		fmt.Fprintf(w, "Size:    %dx%d\n", a.Width, a.Height)
		fmt.Fprintf(w, "Grid:    %d x %.1f\n", a.GridCount, a.GridSize)
		fmt.Fprintf(w, "Heights: %.1f .. %.1f\n", lo, hi)

	case *formats.TIL:
		fmt.Fprintf(w, "Type:  tile info (TIL)\n")
		fmt.Fprintf(w, "Size:  %dx%d\n", a.Width, a.Height)
		for b, n := range a.BrushCounts() {
			if n > 0 {
				fmt.Fprintf(w, "  brush %d: %d cells\n", b, n)
			}
		}

	case *formats.IFO:
		fmt.Fprintf(w, "Type:       object placement (IFO)\n")
		fmt.Fprintf(w, "Blocks:     %d\n", len(a.Blocks))
		fmt.Fprintf(w, "Objects:    %d\n", len(a.Objects))
		fmt.Fprintf(w, "Buildings:  %d\n", len(a.Buildings))
		fmt.Fprintf(w, "Collisions: %d\n", len(a.Collisions))

	case *formats.CHR:
		enabled := 0
		for _, c := range a.Characters {
			if c.Enabled {
				enabled++
			}
		}
		fmt.Fprintf(w, "Type:       character list (CHR)\n")
		fmt.Fprintf(w, "Skeletons:  %d\n", len(a.Skeletons))
		fmt.Fprintf(w, "Motions:    %d\n", len(a.Motions))
		fmt.Fprintf(w, "Effects:    %d\n", len(a.Effects))
		fmt.Fprintf(w, "Characters: %d (%d enabled)\n", len(a.Characters), enabled)

	default:
		fmt.Fprintf(w, "Type: %T\n", asset)
	}
}

func printMap(w io.Writer, m *mapload.Map) {
	cfg := m.Config
	origin := m.Origin()
	fmt.Fprintf(w, "Map:        %s\n", cfg.Dir)
	fmt.Fprintf(w, "Tiles:      %d,%d .. %d,%d (%d of %d loaded)\n",
		cfg.StartX, cfg.StartY, cfg.EndX, cfg.EndY, m.LoadedTiles(), m.TilesX*m.TilesY)
	fmt.Fprintf(w, "Landscape:  %dx%d samples, origin (%.0f, %.0f)\n", m.Width, m.Height, origin.X, origin.Y)
	fmt.Fprintf(w, "Heights:    %.1f .. %.1f\n", m.MinHeight, m.MaxHeight)

	counts := m.CountByKind()
	fmt.Fprintf(w, "Placements: %d\n", len(m.Placements))
	for _, k := range []mapload.PlacementKind{mapload.PlacementBuilding, mapload.PlacementDecoration, mapload.PlacementCollision} {
		fmt.Fprintf(w, "  %-11s %d\n", k, counts[k])
	}
}
