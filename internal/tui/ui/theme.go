package ui

import "github.com/gdamore/tcell/v2"

// Theme is the palette shared by every widget.
type Theme struct {
	BgColor     tcell.Color
	FgColor     tcell.Color
	BorderColor tcell.Color
	TitleColor  tcell.Color

	TableHeaderFg tcell.Color
	TableHeaderBg tcell.Color
	TableCursorFg tcell.Color
	TableCursorBg tcell.Color

	CrumbActiveFg   tcell.Color
	CrumbActiveBg   tcell.Color
	CrumbInactiveFg tcell.Color
	CrumbInactiveBg tcell.Color

	MenuKeyColor      tcell.Color
	NumericKeyColor   tcell.Color
	CounterColor      tcell.Color
	PromptBorderColor tcell.Color

	// Conversation colors.
	UnreadColor tcell.Color
	SelfColor   tcell.Color
	PeerColor   tcell.Color

	FlashInfoColor tcell.Color
	FlashWarnColor tcell.Color
	FlashErrColor  tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:     tcell.ColorBlack,
		FgColor:     tcell.ColorLightGray,
		BorderColor: tcell.ColorTeal,
		TitleColor:  tcell.ColorGold,

		TableHeaderFg: tcell.ColorWhite,
		TableHeaderBg: tcell.ColorBlack,
		TableCursorFg: tcell.ColorBlack,
		TableCursorBg: tcell.ColorMediumTurquoise,

		CrumbActiveFg:   tcell.ColorBlack,
		CrumbActiveBg:   tcell.ColorGold,
		CrumbInactiveFg: tcell.ColorBlack,
		CrumbInactiveBg: tcell.ColorTeal,

		MenuKeyColor:      tcell.ColorMediumTurquoise,
		NumericKeyColor:   tcell.ColorViolet,
		CounterColor:      tcell.ColorWheat,
		PromptBorderColor: tcell.ColorGold,

		UnreadColor: tcell.ColorLimeGreen,
		SelfColor:   tcell.ColorLightSkyBlue,
		PeerColor:   tcell.ColorSalmon,

		FlashInfoColor: tcell.ColorWheat,
		FlashWarnColor: tcell.ColorOrange,
		FlashErrColor:  tcell.ColorOrangeRed,
	}
}

// ColorTag returns c as a tview color tag name.
func ColorTag(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmtHex(c)
}
