package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfeidau/tradejournal/cmd/cli/internal/profile"
	"github.com/wolfeidau/tradejournal/internal/state"
)

type PrefsCmd struct {
	Show    PrefsShowCmd    `cmd:"" default:"withargs" help:"Show UI preferences"`
	Theme   PrefsThemeCmd   `cmd:"" help:"Set or toggle the theme"`
	Sidebar PrefsSidebarCmd `cmd:"" help:"Set or toggle the sidebar"`
}

// openUI loads the persisted UI state into a store bound to a class list, so the printed classes are
// exactly what a document would carry after rehydration.
func openUI(ctx context.Context, globals *Globals) (*state.UIStore, *state.ClassList, *profile.Profile, error) {
	p, err := profile.Open(ctx, globals.Profile)
	if err != nil {
		return nil, nil, nil, err
	}

	doc := state.NewClassList()
	ui := state.NewUIStore(p.Storage(), doc)
	ui.Load(ctx)

	return ui, doc, p, nil
}

func printUI(globals *Globals, s state.UIState, doc *state.ClassList) {
	sidebar := "expanded"
	if s.SidebarCollapsed {
		sidebar = "collapsed"
	}
	fmt.Fprintf(globals.out(), "theme:   %s\nsidebar: %s\nclasses: %s\n", s.Theme, sidebar, strings.Join(doc.Classes(), " "))
}

type PrefsShowCmd struct{}

func (c *PrefsShowCmd) Run(ctx context.Context, globals *Globals) error {
	ui, doc, p, err := openUI(ctx, globals)
	if err != nil {
		return err
	}
	defer p.Close()

	printUI(globals, ui.State(), doc)
	return nil
}

type PrefsThemeCmd struct {
	Theme string `arg:"" enum:"light,dark,toggle" help:"light, dark or toggle"`
}

func (c *PrefsThemeCmd) Run(ctx context.Context, globals *Globals) error {
	ui, doc, p, err := openUI(ctx, globals)
	if err != nil {
		return err
	}
	defer p.Close()

	if c.Theme == "toggle" {
		ui.ToggleTheme(ctx)
	} else if err := ui.SetTheme(ctx, c.Theme); err != nil {
		return err
	}

	printUI(globals, ui.State(), doc)
	return nil
}

type PrefsSidebarCmd struct {
	State string `arg:"" enum:"collapsed,expanded,toggle" help:"collapsed, expanded or toggle"`
}

func (c *PrefsSidebarCmd) Run(ctx context.Context, globals *Globals) error {
	ui, doc, p, err := openUI(ctx, globals)
	if err != nil {
		return err
	}
	defer p.Close()

	switch c.State {
	case "toggle":
		ui.ToggleSidebar(ctx)
	default:
		ui.SetSidebarCollapsed(ctx, c.State == "collapsed")
	}

	printUI(globals, ui.State(), doc)
	return nil
}
