package tui

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"zaptui/internal/bus"
	"zaptui/internal/chat"
	"zaptui/internal/media"
	"zaptui/internal/status"
	"zaptui/internal/store"
	"zaptui/internal/tui/keys"
	"zaptui/internal/tui/ui"
	"zaptui/internal/tui/views"
	"zaptui/internal/wa"
)

// App is the terminal client. It owns the widget tree and the event
// loop, and implements chat.Gateway so the core can drive the screen
// without knowing anything about tview.
//
// All Gateway methods are safe to call from any goroutine; widget
// mutations go through QueueUpdateDraw.
type App struct {
	*tview.Application

	theme    *ui.Theme
	pages    *ui.Pages
	registry *keys.Registry
	flash    *ui.FlashModel

	convList    *views.ConversationList
	thread      *views.MessageThread
	authView    *views.AuthView
	searchView  *views.SearchView
	statusBar   *views.StatusBar
	flashBar    *ui.FlashBar
	crumbs      *ui.Crumbs
	menu        *ui.Menu
	filterInput *tview.InputField
	chatsFlex   *tview.Flex

	components map[string]ui.Component

	bus      *bus.Bus
	session  *chat.Session
	list     *chat.List
	renderer *media.Renderer
	db       *store.DB
	logger   *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	listDirty atomic.Bool
}

// NewApp builds the widget tree. The returned App is not wired to the
// chat core yet: construct the Session and List with it as the Gateway,
// then call Bind before Run.
func NewApp(b *bus.Bus, db *store.DB, sessionName string, logger *zap.Logger) *App {
	theme := ui.DefaultTheme()

	a := &App{
		Application: tview.NewApplication(),
		theme:       theme,
		pages:       ui.NewPages(),
		registry:    keys.NewRegistry(),
		flash:       ui.NewFlashModel(),
		convList:    views.NewConversationList(theme),
		thread:      views.NewMessageThread(theme),
		authView:    views.NewAuthView(theme),
		searchView:  views.NewSearchView(theme),
		statusBar:   views.NewStatusBar(),
		flashBar:    ui.NewFlashBar(theme),
		crumbs:      ui.NewCrumbs(theme),
		menu:        ui.NewMenu(theme),
		bus:         b,
		db:          db,
		logger:      logger,
	}

	a.components = map[string]ui.Component{
		"chats":  a.convList,
		"chat":   a.thread,
		"search": a.searchView,
		"auth":   a.authView,
	}

	a.statusBar.SetSession(sessionName)
	a.statusBar.SetConnection(string(status.Booting))

	a.filterInput = tview.NewInputField().
		SetLabel(" / ").
		SetFieldWidth(0)
	a.filterInput.SetFieldBackgroundColor(theme.BgColor)
	a.filterInput.SetLabelColor(theme.MenuKeyColor)
	a.filterInput.SetChangedFunc(func(text string) {
		a.convList.SetFilter(text)
	})
	a.filterInput.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			a.hideFilter(false)
		}
	})

	a.chatsFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.convList, 0, 1, true).
		AddItem(a.filterInput, 0, 0, false)

	a.menu.SetBorder(true)
	a.menu.SetTitle(" Help ")
	a.menu.SetBorderColor(theme.BorderColor)
	a.menu.SetTitleColor(theme.TitleColor)

	a.pages.AddPage("chats", a.chatsFlex, true, false)
	a.pages.AddPage("chat", a.thread, true, false)
	a.pages.AddPage("search", a.searchView, true, false)
	a.pages.AddPage("auth", a.authView, true, false)
	a.pages.AddPage("help", a.menu, true, false)
	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		a.updateFocus()
	})

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.SetRoot(root, true)
	a.bindKeys()
	a.SetInputCapture(a.handleKey)

	a.convList.SetSelectedFunc(func(row, col int) {
		if idx := a.convList.SelectedIndex(); idx >= 0 {
			a.openConversation(idx)
		}
	})
	a.searchView.SetOnQuery(a.runSearch)
	a.searchView.Results().SetSelectedFunc(func(row, col int) {
		a.openSearchResult()
	})
	a.thread.SetOnSend(func(text string) {
		ctx := a.ctx
		go func() { _ = a.session.Send(ctx, text) }()
	})

	a.pages.Reset("chats")
	return a
}

// Bind attaches the chat core and the media renderer. Separate from
// NewApp because the Session, List and Renderer need the App as their
// Gateway and status sink.
func (a *App) Bind(session *chat.Session, list *chat.List, renderer *media.Renderer) {
	a.session = session
	a.list = list
	a.renderer = renderer
}

// Run starts the background event consumers and blocks in the tview
// event loop until Stop.
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	a.ctx = ctx
	defer a.cancel()

	go a.consumeEvents(ctx)
	go a.tickLoop(ctx)
	go func() {
		if err := a.list.Load(ctx); err != nil {
			a.logger.Warn("initial conversation load failed", zap.Error(err))
		}
	}()

	return a.Application.Run()
}

// Stop cancels background consumers and tears down the terminal.
func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.Application.Stop()
}

// AppendLine implements chat.Gateway.
func (a *App) AppendLine(conversationID string, line chat.Line) {
	a.QueueUpdateDraw(func() {
		if conversationID != a.session.ActiveConversation() {
			return
		}
		a.thread.Append(line)
	})
}

// SetStatus implements chat.Gateway.
func (a *App) SetStatus(text string) {
	a.QueueUpdateDraw(func() {
		a.statusBar.SetTransient(text)
	})
}

// SetConversations implements chat.Gateway.
func (a *App) SetConversations(names []string) {
	a.QueueUpdateDraw(func() {
		a.convList.Update(names)
	})
}

// SetTitle implements chat.Gateway.
func (a *App) SetTitle(text string) {
	a.QueueUpdateDraw(func() {
		a.thread.SetChatName(text)
	})
}

// Render implements chat.Gateway. Queued updates already redraw, so an
// empty update is enough to flush anything pending.
func (a *App) Render() {
	a.QueueUpdateDraw(func() {})
}

func (a *App) bindKeys() {
	a.registry.AddGlobal("quit", &keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Description: "Quit",
		Handler: a.Stop, Visible: true,
	})
	a.registry.AddGlobal("help", &keys.Action{
		Key: tcell.KeyRune, Rune: '?', Description: "Help",
		Handler: a.showHelp, Visible: true,
	})

	a.registry.AddView("chats", "search", &keys.Action{
		Key: tcell.KeyRune, Rune: 's', Description: "Search",
		Handler: func() { a.pages.Push("search") }, Visible: true,
	})
	a.registry.AddView("chats", "filter", &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Description: "Filter",
		Handler: a.showFilter, Visible: true,
	})
	for i := 1; i <= 9; i++ {
		n := i
		a.registry.AddView("chats", fmt.Sprintf("jump-%d", n), &keys.Action{
			Key: tcell.KeyRune, Rune: rune('0' + n),
			Description: "Jump",
			Handler: func() {
				if idx := a.convList.IndexByOrdinal(n); idx >= 0 {
					a.openConversation(idx)
				}
			},
		})
	}

	a.registry.AddView("chat", "compose", &keys.Action{
		Key: tcell.KeyRune, Rune: 'i', Description: "Compose",
		Handler: func() { a.SetFocus(a.thread.Composer()) }, Visible: true,
	})
	a.registry.AddView("chat", "media", &keys.Action{
		Key: tcell.KeyRune, Rune: 'v', Description: "View media",
		Handler: a.viewMedia, Visible: true,
	})
}

func (a *App) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	// Text inputs own printable keys; only Escape is intercepted.
	switch a.GetFocus() {
	case a.thread.Composer():
		if ev.Key() == tcell.KeyEscape {
			a.SetFocus(a.thread.Messages())
			return nil
		}
		return ev
	case a.filterInput:
		if ev.Key() == tcell.KeyEscape {
			a.hideFilter(true)
			return nil
		}
		return ev
	case a.searchView.Input():
		if ev.Key() == tcell.KeyEscape {
			a.back()
			return nil
		}
		return ev
	}

	if ev.Key() == tcell.KeyEscape {
		if a.pages.Current() == "search" && a.GetFocus() == a.searchView.Results() {
			a.SetFocus(a.searchView.Input())
			return nil
		}
		a.back()
		return nil
	}

	if a.registry.HandleEvent(a.pages.Current(), ev) {
		return nil
	}
	return ev
}

func (a *App) back() {
	if a.pages.Depth() <= 1 {
		return
	}
	a.pages.Pop()
}

func (a *App) updateFocus() {
	switch a.pages.Current() {
	case "chats":
		a.SetFocus(a.convList)
	case "chat":
		a.SetFocus(a.thread.Messages())
	case "search":
		a.SetFocus(a.searchView.Input())
	case "auth":
		a.SetFocus(a.authView)
	case "help":
		a.SetFocus(a.menu)
	}
}

func (a *App) showHelp() {
	var hints []ui.MenuHint
	if comp, ok := a.components[a.pages.Current()]; ok {
		hints = append(hints, comp.Hints()...)
	}
	hints = append(hints,
		ui.MenuHint{Key: "q", Description: "Quit"},
		ui.MenuHint{Key: "Esc", Description: "Back"},
	)
	a.menu.Update(hints)
	a.pages.Push("help")
}

func (a *App) showFilter() {
	a.chatsFlex.ResizeItem(a.filterInput, 1, 0)
	a.SetFocus(a.filterInput)
}

func (a *App) hideFilter(clear bool) {
	if clear {
		a.filterInput.SetText("")
		a.convList.ClearFilter()
	}
	a.chatsFlex.ResizeItem(a.filterInput, 0, 0)
	a.SetFocus(a.convList)
}

func (a *App) openConversation(idx int) {
	conv, ok := a.list.At(idx)
	if !ok {
		return
	}
	a.thread.Reset()
	a.thread.SetChatName(conv.DisplayName())
	if a.pages.Current() != "chat" {
		a.pages.Push("chat")
	}
	ctx := a.ctx
	go a.session.Open(ctx, conv)
}

func (a *App) runSearch(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	results, err := a.db.SearchMessages(query, "", 50)
	if err != nil {
		a.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
		a.flash.Err(err)
		return
	}
	a.searchView.Update(results)
	if len(results) == 0 {
		a.flash.Info("No matches")
		return
	}
	a.SetFocus(a.searchView.Results())
}

func (a *App) openSearchResult() {
	chatJID, _ := a.searchView.SelectedResult()
	if chatJID == "" {
		return
	}
	for i := 0; i < a.list.Len(); i++ {
		if conv, ok := a.list.At(i); ok && conv.ID == chatJID {
			a.pages.Pop()
			a.openConversation(i)
			return
		}
	}
	a.flash.Warn("Conversation is not in the current list")
}

// viewMedia renders the newest media message of the open conversation.
// The tview screen is suspended for the duration so the kitty escape
// stream (or the saved-file notice) lands on the real terminal.
func (a *App) viewMedia() {
	msg, ok := a.session.LatestMedia()
	if !ok {
		a.flash.Info("No media in this conversation")
		return
	}
	ctx := a.ctx
	a.Suspend(func() {
		a.renderer.View(ctx, msg)
		fmt.Print("\nPress Enter to return...")
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
	})
}

func (a *App) consumeEvents(ctx context.Context) {
	msgCh, unsubMsg := a.bus.Subscribe("message.", 256)
	defer unsubMsg()
	sessCh, unsubSess := a.bus.Subscribe("session.", 32)
	defer unsubSess()
	syncCh, unsubSync := a.bus.Subscribe("sync.", 32)
	defer unsubSync()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-msgCh:
			a.handleMessageEvent(ctx, evt)
		case evt := <-sessCh:
			a.handleSessionEvent(evt)
		case evt := <-syncCh:
			a.handleSyncEvent(evt)
		}
	}
}

func (a *App) handleMessageEvent(ctx context.Context, evt bus.Event) {
	switch evt.Kind {
	case "message.upserted":
		m, ok := evt.Payload.(*store.Message)
		if !ok {
			return
		}
		a.session.Realtime(ctx, wa.ToChatMessage(m))
		a.listDirty.Store(true)
	case "message.send_failed":
		p, ok := evt.Payload.(map[string]string)
		if !ok {
			return
		}
		a.session.SendFailed(p["chat_jid"], p["error"])
		a.flash.Warn("Send failed: " + p["error"])
	case "message.send_ack":
		// Delivery is reflected by the server echo; nothing to draw.
	}
}

func (a *App) handleSessionEvent(evt bus.Event) {
	switch evt.Kind {
	case "session.status_changed":
		sc, ok := evt.Payload.(status.StatusChange)
		if !ok {
			return
		}
		a.QueueUpdateDraw(func() {
			a.statusBar.SetConnection(string(sc.To))
			if sc.To == status.Ready && a.pages.Current() == "auth" {
				a.pages.Reset("chats")
			}
		})
		if sc.To == status.Ready {
			a.listDirty.Store(true)
		}
	case "session.qr_generated":
		code, ok := evt.Payload.(string)
		if !ok {
			return
		}
		a.QueueUpdateDraw(func() {
			a.authView.ShowQR(code)
			if a.pages.Current() != "auth" {
				a.pages.Push("auth")
			}
		})
	case "session.authenticated":
		a.QueueUpdateDraw(func() {
			a.authView.ShowMessage("Authenticated. Connecting...")
		})
		a.flash.Info("Authenticated")
	case "session.auth_failed":
		reason, _ := evt.Payload.(string)
		a.QueueUpdateDraw(func() {
			a.authView.ShowMessage("Authentication failed: " + reason)
		})
		a.flash.Warn("Authentication failed: " + reason)
	case "session.logged_out":
		a.QueueUpdateDraw(func() {
			a.authView.ShowMessage("Logged out. Restart to scan a new QR code.")
			a.pages.Reset("auth")
		})
	}
}

func (a *App) handleSyncEvent(evt bus.Event) {
	switch evt.Kind {
	case "sync.history_batch":
		if counts, ok := evt.Payload.(map[string]int); ok {
			a.flash.Info(fmt.Sprintf("History synced: %d chats, %d messages",
				counts["chats_count"], counts["messages_count"]))
		}
		a.listDirty.Store(true)
	case "sync.contacts":
		// Names may have improved; refresh the list.
		a.listDirty.Store(true)
	}
}

// tickLoop refreshes the clock, expires flash messages and reloads the
// conversation list when events marked it dirty.
func (a *App) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fm := <-a.flash.Watch():
			msg := fm
			a.QueueUpdateDraw(func() {
				a.flashBar.Update(&msg)
			})
		case <-ticker.C:
			if a.listDirty.CompareAndSwap(true, false) {
				if err := a.list.Load(ctx); err != nil {
					a.logger.Warn("conversation reload failed", zap.Error(err))
				}
			}
			a.QueueUpdateDraw(func() {
				a.statusBar.Refresh()
				a.flashBar.Update(a.flash.GetMessage())
			})
		}
	}
}
