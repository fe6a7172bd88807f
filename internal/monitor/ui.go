package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"uploadsvc/internal/api"
)

// UI renders a Model with tview.
type UI struct {
	app     *tview.Application
	status  *tview.TextView
	message *tview.TextView
	logs    *tview.TextView

	model   *Model
	poller  *Poller
	service string
	baseURL string
}

func NewUI(p *Poller, service, baseURL string) *UI {
	u := &UI{
		app:     tview.NewApplication(),
		model:   NewModel(),
		poller:  p,
		service: service,
		baseURL: baseURL,
	}
	u.status = tview.NewTextView().SetDynamicColors(true)
	u.status.SetBorder(true).SetTitle(" Service Monitor ")
	u.message = tview.NewTextView().SetDynamicColors(true)
	u.logs = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	u.logs.SetBorder(true).SetTitle(" UI log ")
	return u
}

// Run blocks until the user quits or ctx ends.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	buttons := tview.NewForm().SetHorizontal(true)
	for _, b := range []struct{ label, path string }{
		{"Start", "/api/start"},
		{"Stop", "/api/stop"},
		{"Restart", "/api/restart"},
		{"Reconnect", "/api/reconnect"},
	} {
		path := b.path
		buttons.AddButton(b.label, func() {
			u.model.Message = "Sending " + path + "..."
			u.render()
			u.poller.Do(ctx, path)
		})
	}
	buttons.AddButton("Quit", u.app.Stop)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(u.status, 6, 0, false).
		AddItem(buttons, 3, 0, true).
		AddItem(u.message, 1, 0, false).
		AddItem(u.logs, 0, 1, false)

	u.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyRune && ev.Rune() == 'q' {
			u.app.Stop()
			return nil
		}
		return ev
	})

	go u.poller.Run(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				u.app.Stop()
				return
			case ev := <-u.poller.Events():
				u.app.QueueUpdateDraw(func() { u.apply(ev) })
			}
		}
	}()

	u.render()
	return u.app.SetRoot(root, true).EnableMouse(true).Run()
}

func (u *UI) apply(ev Event) {
	fresh := u.model.Apply(ev)
	for _, e := range fresh {
		u.appendLog(e)
	}
	if len(fresh) > 0 {
		u.poller.SetLastLog(u.model.LastLog)
		u.logs.ScrollToEnd()
	}
	u.render()
}

func (u *UI) appendLog(e api.LogEntry) {
	color := e.Color
	if color == "" {
		color = "white"
	}
	fmt.Fprintf(u.logs, "[gray]%s[-] [%s]%s[-]\n", e.Time.Local().Format(time.TimeOnly), color, tview.Escape(e.Message))
}

func (u *UI) render() {
	u.status.Clear()
	fmt.Fprintf(u.status, " API:          %s\n", tview.Escape(u.baseURL))
	fmt.Fprintf(u.status, " Service:      %s ([%s]%s[-])\n", tview.Escape(u.service), stateColor(u.model.Service), u.model.Service)
	fmt.Fprintf(u.status, " UI Connected: [%s]%s[-]\n", apiColor(u.model.API), u.model.API)
	u.message.SetText(" " + tview.Escape(u.model.Message))
}

func stateColor(state string) string {
	switch state {
	case "RUNNING":
		return "green"
	case "STOPPED", "NOT_INSTALLED":
		return "red"
	case Unknown, "UNKNOWN":
		return "gray"
	default:
		return "yellow"
	}
}

func apiColor(s string) string {
	if s == APIConnected {
		return "green"
	}
	return "red"
}
