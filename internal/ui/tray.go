package ui

import (
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/clipforge/clipforge-agent/internal/i18n"
	"github.com/clipforge/clipforge-agent/internal/session"
)

//go:embed icon.png
var iconBytes []byte

// SessionSource is the part of the session controller the tray needs.
type SessionSource interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
	Reset()
}

type Tray struct {
	session SessionSource
	catalog *i18n.Catalog
	lang    string
	logger  *slog.Logger

	statusItem *systray.MenuItem
	clipsItem  *systray.MenuItem

	mu sync.Mutex

	unsubscribe func()
	onQuit      func()
}

type TrayConfig struct {
	Session SessionSource
	Catalog *i18n.Catalog
	Lang    string
	Logger  *slog.Logger
	OnQuit  func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		session: cfg.Session,
		catalog: cfg.Catalog,
		lang:    cfg.Lang,
		logger:  cfg.Logger,
		onQuit:  cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Clipforge")
	systray.SetTooltip("Clipforge Agent")

	snap := t.session.Snapshot()

	t.statusItem = systray.AddMenuItem(t.statusLine(snap), "Current processing phase")
	t.statusItem.Disable()

	t.clipsItem = systray.AddMenuItem(clipsLine(snap), "Selected clips")
	t.clipsItem.Disable()

	systray.AddSeparator()

	resetItem := systray.AddMenuItem("Start Over", "Discard the current video and clips")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Clipforge Agent")

	updates, unsubscribe := t.session.Subscribe()
	t.mu.Lock()
	t.unsubscribe = unsubscribe
	t.mu.Unlock()

	go func() {
		for snap := range updates {
			t.update(snap)
		}
	}()

	go func() {
		for {
			select {
			case <-resetItem.ClickedCh:
				t.logger.Info("start over requested from tray")
				t.session.Reset()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
	t.logger.Info("system tray exiting")
}

func (t *Tray) update(snap session.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusItem.SetTitle(t.statusLine(snap))
	t.clipsItem.SetTitle(clipsLine(snap))
}

func (t *Tray) statusLine(snap session.Snapshot) string {
	title := string(snap.Phase)
	if t.catalog != nil {
		if c := t.catalog.Phase(string(snap.Phase), t.lang); c.Title != "" {
			title = c.Title
		}
	}
	return fmt.Sprintf("Phase: %s (%d%%)", title, snap.Progress)
}

func clipsLine(snap session.Snapshot) string {
	if len(snap.Clips) == 0 {
		return "Clips: none yet"
	}
	return fmt.Sprintf("Clips: %d/%d selected (%s)",
		snap.Stats.SelectedCount, snap.Stats.ClipCount, snap.Stats.TotalSelectedDuration)
}

func (t *Tray) Quit() {
	systray.Quit()
}
