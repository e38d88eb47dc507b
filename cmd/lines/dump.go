package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/rm-tablet/lines/block"
	"github.com/rm-tablet/lines/scene"
	"github.com/rm-tablet/lines/tree"
	"github.com/rm-tablet/lines/wire"
)

// penColorSwatch is an approximate sRGB rendering of each PenColor, used
// only to give the dump output a colored swatch; it has no bearing on
// the wire format.
var penColorSwatch = map[scene.PenColor]colorful.Color{
	scene.PenColorBlack:       colorful.Color{R: 0.05, G: 0.05, B: 0.05},
	scene.PenColorGray:        colorful.Color{R: 0.5, G: 0.5, B: 0.5},
	scene.PenColorWhite:       colorful.Color{R: 0.95, G: 0.95, B: 0.95},
	scene.PenColorYellow:      colorful.Color{R: 0.95, G: 0.85, B: 0.2},
	scene.PenColorGreen:       colorful.Color{R: 0.2, G: 0.7, B: 0.3},
	scene.PenColorPink:        colorful.Color{R: 0.9, G: 0.5, B: 0.7},
	scene.PenColorBlue:        colorful.Color{R: 0.2, G: 0.4, B: 0.9},
	scene.PenColorRed:         colorful.Color{R: 0.85, G: 0.2, B: 0.2},
	scene.PenColorGrayOverlap: colorful.Color{R: 0.6, G: 0.6, B: 0.6},
	scene.PenColorHighlight:   colorful.Color{R: 0.95, G: 0.9, B: 0.4},
	scene.PenColorGreen2:      colorful.Color{R: 0.3, G: 0.8, B: 0.4},
	scene.PenColorCyan:        colorful.Color{R: 0.2, G: 0.8, B: 0.8},
	scene.PenColorMagenta:     colorful.Color{R: 0.8, G: 0.2, B: 0.8},
	scene.PenColorYellow2:     colorful.Color{R: 0.9, G: 0.8, B: 0.3},
}

func swatch(c scene.PenColor) string {
	col, ok := penColorSwatch[c]
	if !ok {
		return color.New(color.FgWhite).Sprint("##")
	}
	r, g, b := col.RGB255()
	return color.RGB(int(r), int(g), int(b)).Sprint("##")
}

func cmdDump(data []byte) {
	body, err := wire.ReadFileHeader(data)
	if err != nil {
		fatal("bad header: %v", err)
	}

	r := block.NewReader(body)
	var warnings []string
	r.OnExtraData = func(extra []byte) {
		warnings = append(warnings, fmt.Sprintf("extra data: %d bytes left in scope", len(extra)))
	}

	t, err := tree.NewBuilder(nil).Build(r)
	if err != nil {
		fatal("build tree: %v", err)
	}

	entries, err := t.Walk()
	if err != nil {
		fatal("walk tree: %v", err)
	}

	bold := color.New(color.Bold)
	dim := color.New(color.Faint)

	bold.Println("scene tree")
	for _, e := range entries {
		indent := strings.Repeat("  ", len(e.Ancestors))
		switch e.Item.Kind {
		case scene.SceneItemGroup:
			fmt.Printf("%s%s group %d.%d %q\n", indent, dim.Sprint("·"), e.Id.Author, e.Id.Counter, e.Item.Group.Label.Value)
		case scene.SceneItemLine:
			l := e.Item.Line
			fmt.Printf("%s%s line %d.%d %s %s, %d points\n", indent, swatch(l.Color), e.Id.Author, e.Id.Counter, l.Color, l.Tool, len(l.Points))
		case scene.SceneItemGlyphRange:
			g := e.Item.GlyphRange
			fmt.Printf("%s%s glyph %d.%d %s %q\n", indent, swatch(g.Color), e.Id.Author, e.Id.Counter, g.Color, g.Text)
		case scene.SceneItemText:
			fmt.Printf("%stext %d.%d\n", indent, e.Id.Author, e.Id.Counter)
		}
	}

	if t.RootText != nil {
		values, err := t.RootText.Items.SortedValues()
		if err != nil {
			fatal("root text: %v", err)
		}
		var b strings.Builder
		for _, run := range values {
			if s, ok := run.AsString(); ok {
				b.WriteString(s)
			} else {
				b.WriteByte('\n')
			}
		}
		bold.Println("\nroot text")
		fmt.Println(b.String())
	}

	if len(warnings) > 0 {
		dim.Fprintln(os.Stderr, strings.Join(warnings, "\n"))
	}
}
