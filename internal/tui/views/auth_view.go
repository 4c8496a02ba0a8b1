package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/parley/internal/tui/ui"
	"github.com/rivo/tview"
	qrcode "github.com/skip2/go-qrcode"
)

// Credentials is what the entry form collects.
type Credentials struct {
	Name     string
	Email    string
	Password string
}

// AuthView is the entry surface: an email/password form, OAuth buttons and
// the device-flow verification screen.
type AuthView struct {
	*tview.Flex
	theme    *ui.Theme
	form     *tview.Form
	status   *tview.TextView
	register bool

	onSignIn   func(Credentials)
	onRegister func(Credentials)
	onOAuth    func(provider string)
}

// NewAuthView creates the entry view.
func NewAuthView(theme *ui.Theme) *AuthView {
	form := tview.NewForm()
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetFieldBackgroundColor(theme.BgColor)
	form.SetFieldTextColor(theme.FgColor)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.BorderColor)
	form.SetTitleColor(theme.TitleColor)

	status := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	status.SetBackgroundColor(theme.BgColor)
	status.SetTextColor(theme.FgColor)

	av := &AuthView{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(form, 13, 0, true).
			AddItem(status, 0, 1, false),
		theme:  theme,
		form:   form,
		status: status,
	}
	av.build(nil)
	return av
}

// Name implements ui.Component.
func (av *AuthView) Name() string { return "Sign in" }

// Hints implements ui.Component.
func (av *AuthView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Submit"},
		{Key: "Ctrl-R", Description: "Register/Sign in"},
	}
}

// SetHandlers sets the callbacks for the form actions.
func (av *AuthView) SetHandlers(signIn, register func(Credentials), oauth func(provider string)) {
	av.onSignIn, av.onRegister, av.onOAuth = signIn, register, oauth
}

// SetProviders rebuilds the form with one button per OAuth provider.
func (av *AuthView) SetProviders(providers []string) {
	av.build(providers)
}

// ToggleRegister switches between the sign-in and registration forms.
func (av *AuthView) ToggleRegister() {
	av.register = !av.register
	av.build(av.providers())
}

// Registering reports whether the registration form is shown.
func (av *AuthView) Registering() bool { return av.register }

func (av *AuthView) providers() []string {
	var out []string
	for i := 0; i < av.form.GetButtonCount(); i++ {
		if label := av.form.GetButton(i).GetLabel(); strings.HasPrefix(label, "OAuth: ") {
			out = append(out, strings.TrimPrefix(label, "OAuth: "))
		}
	}
	return out
}

func (av *AuthView) build(providers []string) {
	av.form.Clear(true)
	if av.register {
		av.form.SetTitle(" Create an account ")
		av.form.AddInputField("Name", "", 40, nil, nil)
	} else {
		av.form.SetTitle(" Sign in ")
	}
	av.form.AddInputField("Email", "", 40, nil, nil)
	av.form.AddPasswordField("Password", "", 40, '*', nil)

	if av.register {
		av.form.AddButton("Register", func() {
			if av.onRegister != nil {
				av.onRegister(av.credentials())
			}
		})
	} else {
		av.form.AddButton("Sign in", func() {
			if av.onSignIn != nil {
				av.onSignIn(av.credentials())
			}
		})
	}
	for _, p := range providers {
		av.form.AddButton("OAuth: "+p, func() {
			if av.onOAuth != nil {
				av.onOAuth(p)
			}
		})
	}
	av.form.SetCancelFunc(nil)
	av.form.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyCtrlR {
			av.ToggleRegister()
			return nil
		}
		return ev
	})
}

func (av *AuthView) credentials() Credentials {
	var c Credentials
	if item := av.form.GetFormItemByLabel("Name"); item != nil {
		c.Name = item.(*tview.InputField).GetText()
	}
	c.Email = av.form.GetFormItemByLabel("Email").(*tview.InputField).GetText()
	c.Password = av.form.GetFormItemByLabel("Password").(*tview.InputField).GetText()
	return c
}

// Reset clears the password field.
func (av *AuthView) Reset() {
	if item := av.form.GetFormItemByLabel("Password"); item != nil {
		item.(*tview.InputField).SetText("")
	}
}

// ShowVerification shows the device-flow instructions with a QR code of uri.
func (av *AuthView) ShowVerification(provider, uri, code string, expires time.Time) {
	av.status.Clear()
	_, _ = fmt.Fprintf(av.status, "\nSign in with %s: open [::b]%s[-:-:-] and enter code [::b]%s[-:-:-]\n\n%s\n[::d]Waiting for approval",
		tview.Escape(provider), tview.Escape(uri), tview.Escape(code), renderQR(uri))
	if !expires.IsZero() {
		_, _ = fmt.Fprintf(av.status, " until %s", expires.Local().Format("15:04"))
	}
	_, _ = fmt.Fprint(av.status, "...[-:-:-]")
}

// ShowMessage displays a status line under the form.
func (av *AuthView) ShowMessage(msg string) {
	av.status.Clear()
	_, _ = fmt.Fprintf(av.status, "\n%s", tview.Escape(msg))
}

// ShowError displays a failure under the form.
func (av *AuthView) ShowError(msg string) {
	av.status.Clear()
	_, _ = fmt.Fprintf(av.status, "\n[%s]%s[-]", ui.ColorTag(av.theme.FlashErrColor), tview.Escape(msg))
}

// Status returns the status text without color tags.
func (av *AuthView) Status() string {
	return av.status.GetText(true)
}

// renderQR draws content as a QR code using Unicode half blocks, two
// bitmap rows per terminal line.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "(QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	var sb strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		for x := range bitmap[y] {
			top := bitmap[y][x]
			bot := y+1 < len(bitmap) && bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
