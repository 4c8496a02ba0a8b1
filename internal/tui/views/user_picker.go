package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/tui/ui"
	"github.com/rivo/tview"
)

// UserPicker lists the users directory. In single mode Enter picks one user;
// in multi mode Space toggles users and Enter confirms the selection.
type UserPicker struct {
	*tview.Table
	theme    *ui.Theme
	users    []chat.User
	multi    bool
	picked   map[string]bool
	onPick   func(user chat.User)
	onPicked func(ids []string)
}

// NewUserPicker creates the users table.
func NewUserPicker(theme *ui.Theme) *UserPicker {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	up := &UserPicker{Table: table, theme: theme, picked: map[string]bool{}}
	table.SetSelectedFunc(func(row, _ int) {
		if up.multi {
			if up.onPicked != nil {
				up.onPicked(up.Picked())
			}
			return
		}
		if u, ok := up.userAt(row); ok && up.onPick != nil {
			up.onPick(u)
		}
	})
	table.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if up.multi && ev.Key() == tcell.KeyRune && ev.Rune() == ' ' {
			row, _ := table.GetSelection()
			up.Toggle(row)
			return nil
		}
		return ev
	})
	return up
}

// Name implements ui.Component.
func (up *UserPicker) Name() string {
	if up.multi {
		return "Group members"
	}
	return "New chat"
}

// Hints implements ui.Component.
func (up *UserPicker) Hints() []ui.MenuHint {
	if up.multi {
		return []ui.MenuHint{
			{Key: "Space", Description: "Toggle"},
			{Key: "Enter", Description: "Create"},
			{Key: "Esc", Description: "Cancel"},
		}
	}
	return []ui.MenuHint{
		{Key: "Enter", Description: "Chat"},
		{Key: "Esc", Description: "Cancel"},
	}
}

// PickOne shows users and calls fn with the chosen one.
func (up *UserPicker) PickOne(users []chat.User, fn func(chat.User)) {
	up.multi, up.onPick, up.onPicked = false, fn, nil
	up.show(users)
}

// PickMany shows users and calls fn with the toggled ids on Enter.
func (up *UserPicker) PickMany(users []chat.User, fn func(ids []string)) {
	up.multi, up.onPick, up.onPicked = true, nil, fn
	up.show(users)
}

func (up *UserPicker) show(users []chat.User) {
	up.users = users
	up.picked = map[string]bool{}
	up.render()
	up.Select(1, 0)
}

// Toggle flips the selection of the user on row.
func (up *UserPicker) Toggle(row int) {
	u, ok := up.userAt(row)
	if !ok {
		return
	}
	up.picked[u.ID] = !up.picked[u.ID]
	up.render()
}

// Picked returns the toggled user ids in directory order.
func (up *UserPicker) Picked() []string {
	var ids []string
	for _, u := range up.users {
		if up.picked[u.ID] {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

func (up *UserPicker) userAt(row int) (chat.User, bool) {
	if row < 1 || row > len(up.users) {
		return chat.User{}, false
	}
	return up.users[row-1], true
}

func (up *UserPicker) render() {
	up.Clear()
	for col, h := range []string{"  NAME", " EMAIL"} {
		up.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(up.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(1))
	}
	for i, u := range up.users {
		mark := "  "
		if up.picked[u.ID] {
			mark = "✓ "
		}
		up.SetCell(i+1, 0, tview.NewTableCell(mark+tview.Escape(sanitizeForTerminal(u.Name))).SetExpansion(1).SetTextColor(up.theme.FgColor))
		up.SetCell(i+1, 1, tview.NewTableCell(" "+tview.Escape(u.Email)).SetExpansion(1).SetTextColor(up.theme.FgColor))
	}
	title := fmt.Sprintf(" Users (%d) ", len(up.users))
	if up.multi {
		title = fmt.Sprintf(" Users (%d picked) ", len(up.Picked()))
	}
	up.SetTitle(title)
}
