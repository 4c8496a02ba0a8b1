// Package tui is the terminal client of a parley profile.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/gate"
	"github.com/matheus3301/parley/internal/outbox"
	"github.com/matheus3301/parley/internal/tui/keys"
	"github.com/matheus3301/parley/internal/tui/model"
	"github.com/matheus3301/parley/internal/tui/ui"
	"github.com/matheus3301/parley/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Page names.
const (
	pageAuth          = "auth"
	pageConversations = "conversations"
	pageThread        = "thread"
	pageInfo          = "info"
	pageHelp          = "help"
	pageUsers         = "users"
)

const eventBuffer = 256

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	vm       *model.ViewModel
	profile  string
	logger   *zap.Logger
	theme    *ui.Theme
	registry *keys.Registry

	root     *tview.Flex
	pages    *ui.Pages
	info     *ui.ProfileInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	prompt   *ui.Prompt
	flash    *ui.FlashModel
	flashBar *ui.FlashBar

	auth    *views.AuthView
	list    *views.ConversationList
	thread  *views.MessageThread
	details *views.ConversationInfo
	help    *views.HelpView
	users   *views.UserPicker

	components map[string]ui.Component
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewApp creates the TUI application for vm.
func NewApp(vm *model.ViewModel, profile string, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		vm:       vm,
		profile:  profile,
		logger:   logger,
		theme:    theme,
		registry: keys.NewRegistry(),
		pages:    ui.NewPages(),
		info:     ui.NewProfileInfo(theme),
		menu:     ui.NewMenu(theme),
		prompt:   ui.NewPrompt(theme),
		flash:    ui.NewFlashModel(),
		flashBar: ui.NewFlashBar(theme),
		auth:     views.NewAuthView(theme),
		list:     views.NewConversationList(theme),
		thread:   views.NewMessageThread(theme),
		details:  views.NewConversationInfo(theme),
		help:     views.NewHelpView(theme),
		users:    views.NewUserPicker(theme),
		ctx:      ctx,
		cancel:   cancel,
	}
	a.components = map[string]ui.Component{
		pageAuth:          a.auth,
		pageConversations: a.list,
		pageThread:        a.thread,
		pageInfo:          a.details,
		pageHelp:          a.help,
		pageUsers:         a.users,
	}
	a.crumbs = ui.NewCrumbs(theme, func(page string) string {
		if c, ok := a.components[page]; ok {
			return c.Name()
		}
		return page
	})

	a.setupLayout()
	a.setupBindings()
	a.setupCallbacks()
	return a
}

func (a *App) setupLayout() {
	a.pages.AddPage(pageAuth, a.auth, true, false)
	a.pages.AddPage(pageConversations, a.list, true, false)
	a.pages.AddPage(pageThread, a.thread, true, false)
	a.pages.AddPage(pageInfo, a.details, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)
	a.pages.AddPage(pageUsers, a.users, true, false)
	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		a.refreshHeader()
	})

	header := tview.NewFlex().
		AddItem(a.info, 34, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 22, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 6, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.flashBar, 1, 0, false)
	a.app.SetRoot(a.root, true)
	a.pages.Reset(pageAuth)
}

func (a *App) setupBindings() {
	r := a.registry
	r.Rune(keys.Global, ':', "Command", func() { a.showPrompt(ui.PromptCommand, "") })
	r.Rune(keys.Global, '?', "Help", func() { a.push(pageHelp, a.help) })

	r.Rune(pageConversations, '/', "Filter", func() { a.showPrompt(ui.PromptFilter, a.list.Filter()) })
	r.Rune(pageConversations, 'n', "New chat", a.pickDirect)
	r.Rune(pageConversations, 'g', "New group", func() { a.showPrompt(ui.PromptCommand, CmdGroup+" ") })
	r.Key(pageConversations, tcell.KeyCtrlD, "Delete", func() { a.deleteConversation(a.list.Selected()) })
	for n := '1'; n <= '9'; n++ {
		idx := int(n - '0')
		r.Rune(pageConversations, n, "Jump", func() {
			if id := a.list.ByIndex(idx); id != "" {
				a.openConversation(id)
			}
		})
	}

	r.Rune(pageThread, 'i', "Compose", func() { a.app.SetFocus(a.thread.Composer()) })
	r.Rune(pageThread, 'm', "Older", func() { a.loadOlder(a.thread.ConversationID()) })
	r.Rune(pageThread, 'd', "Details", a.showDetails)
	r.Key(pageThread, tcell.KeyCtrlD, "Delete", func() { a.deleteConversation(a.thread.ConversationID()) })

	a.app.SetInputCapture(a.capture)
}

func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	page := a.pages.Current()
	focused := a.app.GetFocus()

	if focused == a.prompt.InputField {
		return ev
	}
	if _, ok := focused.(*tview.InputField); ok {
		if ev.Key() == tcell.KeyEscape && focused == a.thread.Composer() {
			a.app.SetFocus(a.thread.Messages())
			return nil
		}
		return ev
	}
	if page == pageAuth {
		return ev
	}

	if ev.Key() == tcell.KeyEscape {
		a.back()
		return nil
	}
	if a.registry.HandleEvent(page, ev) {
		return nil
	}
	return ev
}

func (a *App) setupCallbacks() {
	a.auth.SetHandlers(a.signIn, a.register, a.signInOAuth)

	a.list.SetSelectedFunc(func(row, _ int) {
		if id := a.list.ByIndex(row); id != "" {
			a.openConversation(id)
		}
	})

	a.thread.SetOnSend(func(text string) {
		if err := a.vm.Send(a.ctx, a.thread.ConversationID(), text); err != nil {
			a.flashErr(fmt.Errorf("message not queued: %w", err))
		}
	})

	a.prompt.SetCompletions(Commands())
	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.list.SetFilter(strings.TrimSpace(text))
		case ui.PromptCommand:
			if strings.TrimSpace(text) != "" {
				a.execute(ParseCommand(text))
			}
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	a.vm.Start(a.ctx)
	events, unsubscribe := a.vm.Subscribe(eventBuffer)
	go func() {
		for evt := range events {
			a.app.QueueUpdateDraw(func() { a.handle(evt) })
		}
	}()
	go a.bootstrap()
	go a.tick()

	err := a.app.Run()
	a.cancel()
	unsubscribe()
	a.vm.Close()
	return err
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// ShowVerification displays device-flow instructions on the entry page.
func (a *App) ShowVerification(provider, uri, code string, expires time.Time) {
	a.app.QueueUpdateDraw(func() {
		a.auth.ShowVerification(provider, uri, code, expires)
	})
}

func (a *App) bootstrap() {
	providers, err := a.vm.Providers(a.ctx)
	if err != nil {
		a.logger.Warn("listing providers failed", zap.Error(err))
	}
	resumed, err := a.vm.ResumeCached(a.ctx)
	a.app.QueueUpdateDraw(func() {
		a.auth.SetProviders(providers)
		switch {
		case err != nil:
			a.auth.ShowMessage("Your session ended, please sign in again.")
		case !resumed:
			a.auth.ShowMessage("Sign in, or press Ctrl-R to create an account.")
		}
		a.refreshHeader()
	})
}

func (a *App) tick() {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			a.app.QueueUpdateDraw(func() {
				a.flashBar.Update(a.flash.Current())
				a.refreshHeader()
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// handle applies a client-local event. It runs on the UI goroutine.
func (a *App) handle(evt bus.Event) {
	switch evt.Kind {
	case bus.KindStatusChanged:
		tr, _ := evt.Payload.(gate.Transition)
		switch {
		case tr.To == gate.Authenticating:
			a.auth.ShowMessage("Signing in...")
		case tr.To == gate.Unauthenticated:
			a.pages.Reset(pageAuth)
			a.auth.Reset()
			a.app.SetFocus(a.auth)
			if tr.Trigger == gate.SessionExpired {
				a.auth.ShowMessage("Your session expired, please sign in again.")
			}
		}
	case bus.KindNavRedirect:
		a.vm.SetSurface(gate.SurfaceConversations)
		a.list.Update(a.vm.Items())
		a.pages.Reset(pageConversations)
		a.app.SetFocus(a.list)
		if s := a.vm.Session(); s != nil {
			a.flash.Info("Signed in as " + s.Name)
		}
	case bus.KindIndexChanged:
		change, _ := evt.Payload.(chat.Change)
		a.list.Update(a.vm.Items())
		if a.pages.Current() == pageThread && change.ConversationID == a.thread.ConversationID() {
			if change.Kind == chat.ChangeMessage {
				if err := a.vm.MarkSeen(a.ctx, change.ConversationID); err != nil {
					a.logger.Debug("mark seen skipped", zap.Error(err))
				}
			}
			a.refreshThread()
		}
	case bus.KindNavAway:
		if a.pages.PopTo(pageConversations) {
			a.app.SetFocus(a.list)
		}
		a.flash.Warn("The conversation was deleted")
	case bus.KindAuthFailed:
		if n, ok := evt.Payload.(gate.Notice); ok {
			text := n.Text
			if hint := n.Hint(); hint != "" {
				text += " (" + hint + ")"
			}
			a.auth.ShowError(text)
		}
	case bus.KindTransportUnavailable:
		if err, ok := evt.Payload.(error); ok {
			a.flashErr(fmt.Errorf("daemon unreachable: %w", err))
		}
	case bus.KindSendFailed:
		if f, ok := evt.Payload.(outbox.SendFailure); ok {
			a.flashErr(fmt.Errorf("message not sent: %w", f.Err))
		}
	}
	a.flashBar.Update(a.flash.Current())
	a.refreshHeader()
}

func (a *App) refreshHeader() {
	data := ui.ProfileData{
		Profile:       a.profile,
		Status:        string(a.vm.Status()),
		Conversations: len(a.vm.Items()),
		Unread:        a.vm.UnreadCount(),
		Pending:       a.vm.PendingWrites(),
	}
	if s := a.vm.Session(); s != nil {
		data.User = s.Name
	}
	a.info.Update(data)

	var hints []ui.MenuHint
	if c, ok := a.components[a.pages.Current()]; ok {
		hints = c.Hints()
	}
	if a.pages.Current() != pageAuth {
		hints = append(hints, ui.MenuHint{Key: "?", Description: "Help"})
	}
	a.menu.Update(hints)
}

func (a *App) flashErr(err error) {
	a.logger.Warn("tui error", zap.Error(err))
	a.flash.Err(err)
	a.flashBar.Update(a.flash.Current())
}

func (a *App) push(page string, focus tview.Primitive) {
	a.pages.Push(page)
	a.app.SetFocus(focus)
}

func (a *App) back() {
	switch a.pages.Current() {
	case pageConversations:
		if a.list.Filter() != "" {
			a.list.SetFilter("")
		}
		return
	case pageThread:
		a.vm.Leave()
	}
	a.pages.Pop()
	switch a.pages.Current() {
	case pageThread:
		a.app.SetFocus(a.thread.Messages())
	case pageConversations:
		a.app.SetFocus(a.list)
	}
}

func (a *App) showPrompt(mode ui.PromptMode, text string) {
	a.prompt.Activate(mode)
	a.prompt.SetText(text)
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	switch a.pages.Current() {
	case pageThread:
		a.app.SetFocus(a.thread.Messages())
	case pageUsers:
		a.app.SetFocus(a.users)
	default:
		a.app.SetFocus(a.list)
	}
}

// async runs fn off the UI goroutine and reports its error as a flash.
func (a *App) async(what string, fn func() error) {
	go func() {
		if err := fn(); err != nil {
			a.app.QueueUpdateDraw(func() { a.flashErr(fmt.Errorf("%s: %w", what, err)) })
		}
	}()
}

func (a *App) signIn(c views.Credentials) {
	go func() {
		err := a.vm.SignIn(a.ctx, c.Email, c.Password)
		a.authResult(err)
	}()
}

func (a *App) register(c views.Credentials) {
	go func() {
		err := a.vm.Register(a.ctx, c.Name, c.Email, c.Password)
		a.authResult(err)
	}()
}

func (a *App) signInOAuth(provider string) {
	a.auth.ShowMessage("Contacting " + provider + "...")
	go func() {
		err := a.vm.SignInOAuth(a.ctx, provider)
		a.authResult(err)
	}()
}

// authResult shows errors the gate does not report as notices.
func (a *App) authResult(err error) {
	var failure *chat.AuthFailure
	if err == nil || errors.As(err, &failure) {
		return
	}
	a.app.QueueUpdateDraw(func() { a.auth.ShowError(err.Error()) })
}

func (a *App) titleOf(id string) string {
	for _, it := range a.vm.Items() {
		if it.ID == id {
			return it.DisplayName
		}
	}
	return id
}

func (a *App) refreshThread() {
	id := a.thread.ConversationID()
	c, ok := a.vm.Conversation(id)
	s := a.vm.Session()
	if !ok || s == nil {
		return
	}
	a.thread.Update(c, a.titleOf(id), s.UserID, a.vm.UserName)
}

func (a *App) openConversation(id string) {
	a.async("open conversation", func() error {
		if err := a.vm.Open(a.ctx, id); err != nil {
			return err
		}
		more, err := a.vm.LoadHistory(a.ctx, id)
		a.app.QueueUpdateDraw(func() {
			c, ok := a.vm.Conversation(id)
			s := a.vm.Session()
			if !ok || s == nil {
				return
			}
			a.thread.SetHasMore(more)
			a.thread.Update(c, a.titleOf(id), s.UserID, a.vm.UserName)
			a.pages.PopTo(pageConversations)
			a.push(pageThread, a.thread.Messages())
		})
		return err
	})
}

func (a *App) loadOlder(id string) {
	a.async("load older messages", func() error {
		more, err := a.vm.LoadHistory(a.ctx, id)
		if err != nil {
			return err
		}
		a.app.QueueUpdateDraw(func() {
			a.thread.SetHasMore(more)
			a.refreshThread()
		})
		return nil
	})
}

func (a *App) showDetails() {
	id := a.thread.ConversationID()
	c, ok := a.vm.Conversation(id)
	if !ok {
		return
	}
	a.details.Update(c, a.titleOf(id), a.vm.UserName)
	a.push(pageInfo, a.details)
}

func (a *App) deleteConversation(id string) {
	if id == "" {
		return
	}
	a.async("delete conversation", func() error {
		if err := a.vm.Delete(a.ctx, id); err != nil {
			return err
		}
		a.app.QueueUpdateDraw(func() { a.flash.Info("Conversation deleted") })
		return nil
	})
}

// pickDirect lists the users directory and opens a direct chat with the pick.
func (a *App) pickDirect() {
	a.withUsers("", func(users []chat.User) {
		a.users.PickOne(users, func(u chat.User) { a.startDirect(u.ID) })
		a.push(pageUsers, a.users)
	})
}

func (a *App) startDirect(userID string) {
	a.async("start chat", func() error {
		c, err := a.vm.StartDirect(a.ctx, userID)
		if err != nil {
			return err
		}
		a.app.QueueUpdateDraw(func() { a.pages.PopTo(pageConversations) })
		a.openConversation(c.ID)
		return nil
	})
}

// withUsers fetches the users matching query and hands them to fn on the
// UI goroutine.
func (a *App) withUsers(query string, fn func([]chat.User)) {
	a.async("list users", func() error {
		users, err := a.vm.Users(a.ctx)
		if err != nil {
			return err
		}
		users = matchUsers(users, query)
		a.app.QueueUpdateDraw(func() {
			if len(users) == 0 {
				a.flash.Warn("No matching users")
				return
			}
			fn(users)
		})
		return nil
	})
}

// matchUsers keeps users whose email equals query or whose name or email
// contains it. An exact email match wins outright.
func matchUsers(users []chat.User, query string) []chat.User {
	query = strings.TrimSpace(query)
	if query == "" {
		return users
	}
	var out []chat.User
	for _, u := range users {
		if strings.EqualFold(u.Email, query) {
			return []chat.User{u}
		}
		if strings.Contains(strings.ToLower(u.Name), strings.ToLower(query)) ||
			strings.Contains(strings.ToLower(u.Email), strings.ToLower(query)) {
			out = append(out, u)
		}
	}
	return out
}

func (a *App) execute(cmd Command) {
	switch cmd.Name {
	case CmdNew:
		a.withUsers(cmd.Args, func(users []chat.User) {
			if len(users) == 1 && cmd.Args != "" {
				a.startDirect(users[0].ID)
				return
			}
			a.users.PickOne(users, func(u chat.User) { a.startDirect(u.ID) })
			a.push(pageUsers, a.users)
		})
	case CmdGroup:
		if cmd.Args == "" {
			a.flash.Warn("Usage: :group <name>")
			return
		}
		a.withUsers("", func(users []chat.User) {
			a.users.PickMany(users, func(ids []string) { a.createGroup(cmd.Args, ids) })
			a.push(pageUsers, a.users)
		})
	case CmdDelete:
		id := a.list.Selected()
		if a.pages.Current() == pageThread {
			id = a.thread.ConversationID()
		}
		a.deleteConversation(id)
	case CmdStatus:
		a.async("daemon status", func() error {
			st, err := a.vm.DaemonStatus(a.ctx)
			if err != nil {
				return err
			}
			up := (time.Duration(st.UptimeMs) * time.Millisecond).Round(time.Second)
			a.app.QueueUpdateDraw(func() {
				a.flash.Info(fmt.Sprintf("daemon %s up %s: %d users, %d conversations, %d messages",
					st.Profile, up, st.Users, st.Conversations, st.Messages))
			})
			return nil
		})
	case CmdLogout:
		a.async("sign out", a.vm.SignOut)
	case CmdHelp:
		a.push(pageHelp, a.help)
	case CmdQuit:
		a.Stop()
	default:
		a.flash.Warn("Unknown command: " + cmd.Name)
	}
	a.flashBar.Update(a.flash.Current())
}

func (a *App) createGroup(name string, members []string) {
	a.async("create group", func() error {
		c, err := a.vm.CreateGroup(a.ctx, name, members)
		if err != nil {
			return err
		}
		a.app.QueueUpdateDraw(func() { a.pages.PopTo(pageConversations) })
		a.openConversation(c.ID)
		return nil
	})
}
