package main

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/rm-tablet/lines/block"
	"github.com/rm-tablet/lines/scene"
	"github.com/rm-tablet/lines/tree"
	"github.com/rm-tablet/lines/wire"
)

// cmdView opens an interactive terminal browser over the scene tree:
// up/down move the cursor (scrolling as needed), q, Escape or Ctrl-C
// quits.
func cmdView(data []byte) {
	body, err := wire.ReadFileHeader(data)
	if err != nil {
		fatal("bad header: %v", err)
	}

	r := block.NewReader(body)
	t, err := tree.NewBuilder(nil).Build(r)
	if err != nil {
		fatal("build tree: %v", err)
	}
	entries, err := t.Walk()
	if err != nil {
		fatal("walk tree: %v", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fatal("new screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		fatal("init screen: %v", err)
	}
	defer screen.Fini()

	cursor, top := 0, 0
	lineStyle := tcell.StyleDefault
	selStyle := tcell.StyleDefault.Reverse(true)

	draw := func() {
		screen.Clear()
		width, height := screen.Size()
		for row := 0; row < height-1 && top+row < len(entries); row++ {
			e := entries[top+row]
			style := lineStyle
			if top+row == cursor {
				style = selStyle
			}
			text := describeEntry(e)
			for col, ch := range text {
				if col >= width {
					break
				}
				screen.SetContent(col, row, ch, nil, style)
			}
		}
		footer := fmt.Sprintf("%d/%d entries  (arrows to move, q to quit)", len(entries), len(entries))
		for col, ch := range footer {
			if col >= width {
				break
			}
			screen.SetContent(col, height-1, ch, nil, tcell.StyleDefault.Dim(true))
		}
		screen.Show()
	}

	draw()
	for {
		ev := screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventResize:
			screen.Sync()
			draw()
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				return
			case tcell.KeyRune:
				if ev.Rune() == 'q' {
					return
				}
			case tcell.KeyUp:
				if cursor > 0 {
					cursor--
					if cursor < top {
						top = cursor
					}
				}
				draw()
			case tcell.KeyDown:
				if cursor < len(entries)-1 {
					cursor++
					_, height := screen.Size()
					if cursor >= top+height-1 {
						top = cursor - height + 2
					}
				}
				draw()
			}
		}
	}
}

func describeEntry(e tree.WalkEntry) string {
	indent := strings.Repeat("  ", len(e.Ancestors))
	switch e.Item.Kind {
	case scene.SceneItemGroup:
		return fmt.Sprintf("%s[%d.%d] group %q", indent, e.Id.Author, e.Id.Counter, e.Item.Group.Label.Value)
	case scene.SceneItemLine:
		l := e.Item.Line
		return fmt.Sprintf("%s[%d.%d] line %s %s (%d pts)", indent, e.Id.Author, e.Id.Counter, l.Color, l.Tool, len(l.Points))
	case scene.SceneItemGlyphRange:
		g := e.Item.GlyphRange
		return fmt.Sprintf("%s[%d.%d] glyph %s %q", indent, e.Id.Author, e.Id.Counter, g.Color, g.Text)
	case scene.SceneItemText:
		return fmt.Sprintf("%s[%d.%d] text", indent, e.Id.Author, e.Id.Counter)
	default:
		return indent
	}
}
