package tui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/vivah/internal/app"
	"github.com/matheus3301/vivah/internal/chat"
	"github.com/matheus3301/vivah/internal/tui/keys"
	"github.com/matheus3301/vivah/internal/tui/model"
	"github.com/matheus3301/vivah/internal/tui/ui"
	"github.com/matheus3301/vivah/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Page ids.
const (
	pageList         = "list"
	pageConversation = "conversation"
	pageDetails      = "details"
	pageHelp         = "help"
	pageRequests     = "requests"
)

const listRefreshInterval = 5 * time.Second

// App is the main TUI application shell.
type App struct {
	tapp     *tview.Application
	root     *tview.Flex
	vm       *model.ViewModel
	logger   *zap.Logger
	theme    *ui.Theme
	registry *keys.Registry
	flash    *ui.FlashModel

	pages    *ui.Pages
	info     *ui.ViewerInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	flashBar *ui.FlashBar
	prompt   *ui.Prompt

	list     *views.ConversationList
	screen   *views.ConversationScreen
	details  *views.ConversationInfo
	help     *views.HelpView
	requests *views.RequestList

	// opening is the conversation the conversation screen binds to on focus.
	opening string
	redraw  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI for the viewer in ac.
func NewApp(ac *app.Context) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()
	placeholder := ac.Config.PlaceholderName
	if placeholder == "" {
		placeholder = chat.DefaultPlaceholderName
	}

	a := &App{
		tapp:     tview.NewApplication(),
		vm:       model.NewViewModel(ac),
		logger:   ac.Logger.Named("tui"),
		theme:    theme,
		registry: keys.NewRegistry(),
		pages:    ui.NewPages(),
		info:     ui.NewViewerInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		list:     views.NewConversationList(theme, ac.Viewer, placeholder),
		screen:   views.NewConversationScreen(theme, ac.Viewer),
		details:  views.NewConversationInfo(theme, ac.Viewer),
		help:     views.NewHelpView(theme),
		requests: views.NewRequestList(theme, ac.Viewer, placeholder),
		redraw:   make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	a.flash = ui.NewFlashModel(a.requestRedraw)

	a.pages.Register(pageList, a.list)
	a.pages.Register(pageConversation, a.screen)
	a.pages.Register(pageDetails, a.details)
	a.pages.Register(pageHelp, a.help)
	a.pages.Register(pageRequests, a.requests)

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Description: "Quit", Visible: true,
		Handler: a.Stop,
	})
	a.registry.AddGlobal("help", &keys.Action{
		Key: tcell.KeyRune, Rune: '?', Description: "Help", Visible: true,
		Handler: func() { a.push(pageHelp) },
	})
	a.registry.AddGlobal("command", &keys.Action{
		Key: tcell.KeyRune, Rune: ':', Description: "Command", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})

	a.registry.AddView(pageList, "filter", &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Description: "Filter", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptFilter) },
	})
	a.registry.AddView(pageList, "open", &keys.Action{
		Key: tcell.KeyEnter, Label: "Enter", Description: "Open", Visible: true,
		Handler: func() { a.openConversation(a.list.Selected()) },
	})
	a.registry.AddView(pageList, "details", &keys.Action{
		Key: tcell.KeyRune, Rune: 'd', Description: "Details", Visible: true,
		Handler: func() { a.showDetails(a.list.Selected()) },
	})
	a.registry.AddView(pageList, "reload", &keys.Action{
		Key: tcell.KeyRune, Rune: 'R', Description: "Reload",
		Handler: a.reloadConversations,
	})

	a.registry.AddView(pageConversation, "compose", &keys.Action{
		Key: tcell.KeyRune, Rune: 'i', Description: "Compose", Visible: true,
		Handler: func() { a.tapp.SetFocus(a.screen.Composer()) },
	})
	a.registry.AddView(pageConversation, "retry", &keys.Action{
		Key: tcell.KeyRune, Rune: 'r', Description: "Retry", Visible: true,
		Handler: a.resend,
	})
	a.registry.AddView(pageConversation, "details", &keys.Action{
		Key: tcell.KeyRune, Rune: 'd', Description: "Details", Visible: true,
		Handler: func() { a.showDetails(a.vm.ActiveID()) },
	})
	a.registry.AddView(pageConversation, "back", &keys.Action{
		Key: tcell.KeyEscape, Label: "Esc", Description: "Back", Visible: true,
		Handler: a.back,
	})
	a.registry.AddView(pageDetails, "back", &keys.Action{
		Key: tcell.KeyEscape, Label: "Esc", Description: "Back", Visible: true,
		Handler: a.back,
	})
	a.registry.AddView(pageRequests, "accept", &keys.Action{
		Key: tcell.KeyRune, Rune: 'a', Description: "Accept", Visible: true,
		Handler: func() { a.respond(a.requests.Selected(), chat.ConnectionAccepted) },
	})
	a.registry.AddView(pageRequests, "decline", &keys.Action{
		Key: tcell.KeyRune, Rune: 'x', Description: "Decline", Visible: true,
		Handler: func() { a.respond(a.requests.Selected(), chat.ConnectionDeclined) },
	})
	a.registry.AddView(pageRequests, "block", &keys.Action{
		Key: tcell.KeyRune, Rune: 'b', Description: "Block", Visible: true,
		Handler: func() { a.respond(a.requests.Selected(), chat.ConnectionBlocked) },
	})
	a.registry.AddView(pageRequests, "back", &keys.Action{
		Key: tcell.KeyEscape, Label: "Esc", Description: "Back", Visible: true,
		Handler: a.back,
	})
	a.registry.AddView(pageHelp, "back", &keys.Action{
		Key: tcell.KeyEscape, Label: "Esc", Description: "Back", Visible: true,
		Handler: a.back,
	})
}

func (a *App) setupCallbacks() {
	a.screen.SetLifecycle(a.focusConversation, a.vm.Close)
	a.requests.SetOnStart(a.reloadRequests)

	a.screen.SetOnSend(func(text string) {
		if err := a.vm.Send(a.ctx, text); err != nil {
			a.flash.Err(err)
		}
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.list.SetFilter(text)
		case ui.PromptCommand:
			a.execute(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
	a.prompt.SetCommands(CommandNames())
	a.crumbs.SetLabel(func(page string) string {
		if page == pageConversation {
			return a.vm.Header().Name
		}
		return ""
	})

	a.pages.SetOnChange(func(names []string) {
		a.crumbs.Update(names)
		a.menu.Update(a.registry.Hints(a.pages.Current()))
		if c := a.pages.Component(); c != nil {
			a.tapp.SetFocus(c)
		}
	})
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(a.info, 0, 1, false).
		AddItem(a.menu, 0, 1, false)

	a.root = tview.NewFlex().SetDirection(tview.FlexRow)
	a.layout(header, false)
	a.tapp.SetRoot(a.root, true)

	a.tapp.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch a.tapp.GetFocus() {
		case a.prompt, a.prompt.InputField:
			return ev
		case a.screen.Composer():
			if ev.Key() == tcell.KeyEscape {
				a.tapp.SetFocus(a.screen.Messages())
				return nil
			}
			return ev
		}

		if a.pages.Current() == pageList && ev.Key() == tcell.KeyRune && ev.Rune() >= '1' && ev.Rune() <= '9' {
			n, _ := strconv.Atoi(string(ev.Rune()))
			a.openConversation(a.list.ByIndex(n))
			return nil
		}
		if a.registry.HandleEvent(a.pages.Current(), ev) {
			return nil
		}
		return ev
	})
}

func (a *App) layout(header tview.Primitive, withPrompt bool) {
	a.root.Clear()
	a.root.AddItem(header, 1, 0, false)
	if withPrompt {
		a.root.AddItem(a.prompt, 3, 0, true)
	}
	a.root.AddItem(a.pages, 0, 1, !withPrompt).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)
}

func (a *App) showPrompt(mode ui.PromptMode) {
	text := ""
	if mode == ui.PromptFilter {
		text = a.list.Filter()
	}
	a.prompt.Activate(mode, text)
	a.layout(a.root.GetItem(0), true)
	a.tapp.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.layout(a.root.GetItem(0), false)
	if c := a.pages.Component(); c != nil {
		a.tapp.SetFocus(c)
	}
}

func (a *App) push(id string) {
	if a.pages.Current() == id {
		return
	}
	a.pages.Push(id)
}

func (a *App) back() {
	a.pages.Pop()
}

func (a *App) openConversation(id string) {
	if id == "" {
		return
	}
	a.opening = id
	if a.pages.Current() == pageConversation {
		// Refocus on another conversation replaces the live one.
		a.focusConversation()
		return
	}
	a.pages.Reset(pageList)
	a.pages.Push(pageConversation)
}

// focusConversation runs whenever the conversation screen becomes the top
// page.
func (a *App) focusConversation() {
	if err := a.vm.Open(a.ctx, a.opening); err != nil {
		a.logger.Warn("open conversation failed", zap.Error(err), zap.String("conversation_id", a.opening))
		a.flash.Err(err)
		return
	}
	a.render()
}

func (a *App) showDetails(id string) {
	d, ok := a.vm.ConversationByID(id)
	if !ok {
		a.flash.Warn("no conversation selected")
		return
	}
	a.details.Update(&d)
	a.push(pageDetails)
}

func (a *App) resend() {
	go func() {
		ok, err := a.vm.ResendLatestFailed(a.ctx)
		switch {
		case err != nil:
			a.flash.Err(err)
		case !ok:
			a.flash.Info("nothing to retry")
		default:
			a.flash.Info("retrying")
		}
	}()
}

func (a *App) reloadConversations() {
	go func() {
		if err := a.vm.LoadConversations(a.ctx); err != nil {
			a.logger.Warn("load conversations failed", zap.Error(err))
			a.flash.Err(fmt.Errorf("load conversations: %w", err))
		}
	}()
}

func (a *App) reloadRequests() {
	go func() {
		if err := a.vm.LoadRequests(a.ctx); err != nil {
			a.logger.Warn("load requests failed", zap.Error(err))
			a.flash.Err(fmt.Errorf("load requests: %w", err))
		}
	}()
}

func (a *App) respond(connectionID string, state chat.ConnectionState) {
	if connectionID == "" {
		a.flash.Warn("no request selected")
		return
	}
	go func() {
		conn, err := a.vm.Respond(a.ctx, connectionID, state)
		if err != nil {
			a.flash.Err(err)
			return
		}
		a.flash.Info(fmt.Sprintf("connection %s %s", conn.ID, conn.State))
	}()
}

func (a *App) execute(cmd Command) {
	if err := cmd.Validate(); err != nil {
		a.flash.Err(err)
		return
	}
	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.push(pageHelp)
	case "refresh":
		a.reloadConversations()
	case "requests":
		a.push(pageRequests)
	case "open":
		id := a.list.FindByName(cmd.Args)
		if id == "" {
			a.flash.Warn(fmt.Sprintf("no conversation with %q", cmd.Args))
			return
		}
		a.openConversation(id)
	case "connect":
		go func() {
			conn, err := a.vm.Connect(a.ctx, cmd.Args)
			if err != nil {
				a.flash.Err(err)
				return
			}
			a.flash.Info(fmt.Sprintf("connection %s sent to %s", conn.ID, cmd.Args))
		}()
	case "accept", "decline", "block":
		state := map[string]chat.ConnectionState{
			"accept":  chat.ConnectionAccepted,
			"decline": chat.ConnectionDeclined,
			"block":   chat.ConnectionBlocked,
		}[cmd.Name]
		a.respond(cmd.Args, state)
	}
}

func (a *App) requestRedraw() {
	select {
	case a.redraw <- struct{}{}:
	default:
	}
}

// render copies view model state into the widgets. It runs on the UI
// goroutine.
func (a *App) render() {
	convs := a.vm.Conversations()
	a.list.Update(convs)
	a.requests.Update(a.vm.Requests())
	a.info.Update(ui.ViewerData{
		Viewer:        a.vm.Viewer(),
		Conversations: len(convs),
		Unread:        a.vm.UnreadTotal(),
		Feed:          string(a.vm.FeedStatus()),
	})
	if a.pages.Current() == pageConversation {
		a.screen.SetHeader(a.vm.Header(), a.vm.FeedStatus())
		a.screen.Update(a.vm.Messages(), a.vm.Failed)
		a.crumbs.Update(a.pages.Names())
	}
	a.flashBar.Update(a.flash.Current())
}

func (a *App) renderLoop() {
	reload := time.NewTicker(listRefreshInterval)
	defer reload.Stop()
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		select {
		case <-a.vm.RefreshCh():
		case <-a.redraw:
		case <-tick.C:
		case <-reload.C:
			a.reloadConversations()
			continue
		case <-a.ctx.Done():
			return
		}
		a.tapp.QueueUpdateDraw(a.render)
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	a.pages.Reset(pageList)
	a.reloadConversations()
	go a.renderLoop()

	err := a.tapp.Run()
	a.cancel()
	return err
}

// Stop releases the open conversation and shuts down the TUI.
func (a *App) Stop() {
	a.pages.StopAll()
	a.cancel()
	a.tapp.Stop()
}
