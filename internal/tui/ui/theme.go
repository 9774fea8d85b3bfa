package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor         tcell.Color
	FgColor         tcell.Color
	MutedColor      tcell.Color
	BorderColor     tcell.Color
	TableHeaderFg   tcell.Color
	TableCursorFg   tcell.Color
	TableCursorBg   tcell.Color
	CrumbActiveFg   tcell.Color
	CrumbActiveBg   tcell.Color
	CrumbInactiveFg tcell.Color
	CrumbInactiveBg tcell.Color
	MenuKeyColor    tcell.Color
	TitleColor      tcell.Color
	CounterColor    tcell.Color
	OwnColor        tcell.Color
	PeerColor       tcell.Color
	FlashInfoColor  tcell.Color
	FlashWarnColor  tcell.Color
	FlashErrColor   tcell.Color
	PromptColor     tcell.Color
}

// DefaultTheme returns a dark theme in maroon and gold.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:         tcell.ColorBlack,
		FgColor:         tcell.ColorWheat,
		MutedColor:      tcell.ColorGray,
		BorderColor:     tcell.ColorMaroon,
		TableHeaderFg:   tcell.ColorGold,
		TableCursorFg:   tcell.ColorBlack,
		TableCursorBg:   tcell.ColorGoldenrod,
		CrumbActiveFg:   tcell.ColorBlack,
		CrumbActiveBg:   tcell.ColorGold,
		CrumbInactiveFg: tcell.ColorWhite,
		CrumbInactiveBg: tcell.ColorMaroon,
		MenuKeyColor:    tcell.ColorGold,
		TitleColor:      tcell.ColorHotPink,
		CounterColor:    tcell.ColorPapayaWhip,
		OwnColor:        tcell.ColorLightGreen,
		PeerColor:       tcell.ColorLightPink,
		FlashInfoColor:  tcell.ColorNavajoWhite,
		FlashWarnColor:  tcell.ColorOrange,
		FlashErrColor:   tcell.ColorOrangeRed,
		PromptColor:     tcell.ColorGoldenrod,
	}
}

// Tag returns c formatted for a tview color tag.
func Tag(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
