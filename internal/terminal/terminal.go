package terminal

import "os"

// Clear moves the cursor home and wipes the screen before each frame
// of the status display.
func Clear() {
	os.Stdout.WriteString("\033[H\033[2J")
}

func HideCursor() {
	os.Stdout.WriteString("\033[?25l")
}

// Reset restores the terminal on exit, whatever state the display
// left it in.
func Reset() {
	os.Stdout.WriteString("\033[?25h")
	os.Stdout.WriteString("\033[0m")
	os.Stdout.Sync()
}
