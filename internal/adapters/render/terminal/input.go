package terminal

import (
	"context"

	"github.com/gdamore/tcell/v2"
	"github.com/okian/piggybank/pkg/logger"
)

// Controller receives the commands the terminal can issue.
type Controller interface {
	ToggleOverlay(ctx context.Context) (bool, error)
	Resize(ctx context.Context, width, height int) error
}

// Pump reads screen events until the user quits, ctx ends or the screen is
// finalised. A button press toggles the overlay and a resize is forwarded in
// scene units.
func Pump(ctx context.Context, screen tcell.Screen, view *View, ctrl Controller) {
	log := logger.Get().Named("terminal")
	events := make(chan tcell.Event, 64)
	quit := make(chan struct{})
	go screen.ChannelEvents(events, quit)
	defer close(quit)

	var pressed tcell.ButtonMask
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if isQuit(ev) {
					return
				}
			case *tcell.EventMouse:
				buttons := ev.Buttons() & (tcell.Button1 | tcell.Button2 | tcell.Button3)
				if buttons != 0 && pressed == 0 {
					if _, err := ctrl.ToggleOverlay(ctx); err != nil {
						log.Debug(ctx, "toggle overlay ignored", logger.Error(err))
					}
				}
				pressed = buttons
			case *tcell.EventResize:
				cols, rows := ev.Size()
				w, h := view.SceneSize(cols, rows)
				if err := ctrl.Resize(ctx, w, h); err != nil {
					log.Warn(ctx, "resize failed", logger.Int("cols", cols), logger.Int("rows", rows), logger.Error(err))
				}
				screen.Sync()
			}
		}
	}
}

func isQuit(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q'
	}
	return false
}
