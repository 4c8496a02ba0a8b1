package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread displays the messages of one conversation and a composer.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	id       string
	title    string
	more     bool
	onSend   func(text string)
	now      func() time.Time
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	mt := &MessageThread{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(messages, 0, 1, true).
			AddItem(composer, 3, 0, false),
		theme:    theme,
		messages: messages,
		composer: composer,
		now:      time.Now,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || mt.onSend == nil {
			return
		}
		if text := strings.TrimSpace(composer.GetText()); text != "" {
			mt.onSend(text)
			composer.SetText("")
		}
	})
	return mt
}

// Name implements ui.Component.
func (mt *MessageThread) Name() string {
	if mt.title != "" {
		return mt.title
	}
	return "Messages"
}

// Hints implements ui.Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "m", Description: "Older"},
		{Key: "d", Description: "Details"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnSend sets the callback invoked with composed text.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// SetHasMore records whether older messages can be loaded.
func (mt *MessageThread) SetHasMore(more bool) {
	mt.more = more
}

// ConversationID returns the conversation shown.
func (mt *MessageThread) ConversationID() string { return mt.id }

// Update renders c for selfID, oldest message first. name resolves user ids.
func (mt *MessageThread) Update(c *chat.Conversation, title, selfID string, name func(id string) string) {
	mt.id, mt.title = c.ID, title
	mt.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(title))))
	mt.messages.Clear()

	if mt.more {
		_, _ = fmt.Fprint(mt.messages, "[::d]  m: load older messages[-:-:-]\n\n")
	}
	if len(c.Messages) == 0 {
		_, _ = fmt.Fprint(mt.messages, "[::d]  No messages yet. Press i to say hello.[-:-:-]")
		return
	}

	now := mt.now()
	latest := c.Latest()
	for _, m := range c.Messages {
		color := mt.theme.PeerColor
		if m.SenderID == selfID {
			color = mt.theme.SelfColor
		}
		body := m.Body
		if m.Image != "" {
			body = strings.TrimSpace(body + " [image: " + m.Image + "]")
		}
		_, _ = fmt.Fprintf(mt.messages, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n",
			ui.ColorTag(color),
			tview.Escape(sanitizeForTerminal(name(m.SenderID))),
			formatTimestamp(m.CreatedAt, now),
			tview.Escape(sanitizeForTerminal(body)))
		if m == latest && m.SenderID == selfID {
			if seen := seenBy(m, selfID, name); seen != "" {
				_, _ = fmt.Fprintf(mt.messages, "[::d]seen by %s[-:-:-]\n", tview.Escape(seen))
			}
		}
		_, _ = fmt.Fprint(mt.messages, "\n")
	}
	mt.messages.ScrollToEnd()
}

func seenBy(m *chat.Message, selfID string, name func(string) string) string {
	var names []string
	for _, id := range m.SeenBy {
		if id != selfID {
			names = append(names, name(id))
		}
	}
	return strings.Join(names, ", ")
}

// Text returns the rendered thread without color tags.
func (mt *MessageThread) Text() string {
	return mt.messages.GetText(true)
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}
