package banner

import (
	"gatebench/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
   ______      __       __                    __
  / ____/___ _/ /____  / /_  ___  ____  _____/ /_
 / / __/ __ '/ __/ _ \/ __ \/ _ \/ __ \/ ___/ __ \
/ /_/ / /_/ / /_/  __/ /_/ /  __/ / / / /__/ / / /
\____/\__,_/\__/\___/_.___/\___/_/ /_/\___/_/ /_/ `

	return "\n" + style.Render(ascii) + "\n"
}
