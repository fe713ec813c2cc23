// Package cli implements a command-line UI for Connect-Four: board printing, and reading the moves of a
// human player.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/AntonJorg/general-tree-search/internal/games/connectfour"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

var ansiFilter = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// ErrTooManyParsingErrors is returned by ReadCommand if the user fails to enter a valid move 3 times.
var ErrTooManyParsingErrors = errors.New("failed to read command 3 times")

// displayWidth of s removes its color/control sequences and returns the length of what is left.
func displayWidth(s string) int {
	return len([]rune(ansiFilter.ReplaceAllString(s, "")))
}

// UI prints boards to a writer (os.Stdout by default) and reads commands from a reader (os.Stdin by default).
type UI struct {
	color, clearScreen bool
	out                io.Writer
	reader             *bufio.Reader

	// width of the terminal, 0 if not known: then nothing is centered.
	width int
}

// New creates a UI on the standard input and output.
func New(color bool, clearScreen bool) *UI {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		width = 0
	}
	return &UI{
		color:       color,
		clearScreen: clearScreen,
		out:         os.Stdout,
		reader:      bufio.NewReader(os.Stdin),
		width:       width,
	}
}

// printCentered prints the block of text centered in the terminal.
func (ui *UI) printCentered(block string) {
	lines := strings.Split(block, "\n")
	blockWidth := 0
	for _, line := range lines {
		blockWidth = max(blockWidth, displayWidth(line))
	}
	indent := max((ui.width-blockWidth)/2, 0)
	for _, line := range lines {
		if len(line) == 0 {
			_, _ = fmt.Fprintln(ui.out)
			continue
		}
		_, _ = fmt.Fprintf(ui.out, "%s%s\n", strings.Repeat(" ", indent), line)
	}
}

// disc returns the symbol for the given player (1 or 2), or for an empty cell (0).
func (ui *UI) disc(player int) string {
	switch player {
	case 1:
		if ui.color {
			return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).Render("●")
		}
		return "X"
	case 2:
		if ui.color {
			return lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true).Render("●")
		}
		return "O"
	}
	return "·"
}

// PlayerName returns the name of the player, with its disc.
func (ui *UI) PlayerName(player int) string {
	return fmt.Sprintf("%s Player %d", ui.disc(player), player)
}

// RenderBoard returns the board, framed, with the column numbers at the bottom.
func (ui *UI) RenderBoard(state *connectfour.State) string {
	var sb strings.Builder
	for row := connectfour.Height - 1; row >= 0; row-- {
		for col := range connectfour.Width {
			if col > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(ui.disc(state.Cell(row, col)))
		}
		if row > 0 {
			sb.WriteByte('\n')
		}
	}
	style := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	if ui.color {
		style = style.BorderForeground(lipgloss.Color("12"))
	}
	var columns []string
	for col := range connectfour.Width {
		columns = append(columns, strconv.Itoa(col))
	}
	return style.Render(sb.String()) + "\n  " + strings.Join(columns, " ")
}

// Print the move number, the board, and whose turn it is.
func (ui *UI) Print(state *connectfour.State) {
	if ui.clearScreen {
		_, _ = fmt.Fprint(ui.out, "\033c")
	}
	_, _ = fmt.Fprintf(ui.out, "\nMove #%d\n\n", state.Moves())
	ui.printCentered(ui.RenderBoard(state))
	_, _ = fmt.Fprintln(ui.out)
	if !state.IsTerminal() {
		_, _ = fmt.Fprintf(ui.out, "\tTurn to play: %s\n", ui.PlayerName(state.Moves()%2+1))
	}
}

// PrintWinner prints the final result of the match.
func (ui *UI) PrintWinner(state *connectfour.State) {
	_, _ = fmt.Fprintln(ui.out)
	winner := state.Winner()
	var message string
	if winner == 0 {
		message = "*** DRAW! ***"
	} else {
		message = fmt.Sprintf("*** %s WINS!! ***", strings.ToUpper(ui.PlayerName(winner)))
	}
	style := lipgloss.NewStyle().Padding(1, 2)
	if ui.color {
		style = style.Background(lipgloss.Color("13")).Foreground(lipgloss.Color("0"))
	}
	ui.printCentered(style.Render(message))
	_, _ = fmt.Fprintln(ui.out)
}

// ReadCommand reads the column to play from the user. It gives the user 3 attempts to enter a valid move.
func (ui *UI) ReadCommand(state *connectfour.State) (action connectfour.Action, err error) {
	for range 3 {
		_, _ = fmt.Fprintf(ui.out, "    %s action > ", ui.PlayerName(state.Moves()%2+1))
		var text string
		text, err = ui.reader.ReadString('\n')
		if err != nil && (err != io.EOF || text == "") {
			return 0, errors.Wrap(err, "failed to read command")
		}
		text = strings.TrimSpace(text)
		col, parseErr := strconv.Atoi(text)
		if parseErr != nil {
			_, _ = fmt.Fprintf(ui.out, "    * Failed to parse your input %q, please enter a column number.\n", text)
			continue
		}
		if !slices.Contains(state.Actions(), col) {
			_, _ = fmt.Fprintf(ui.out, "    * Column %d is not a valid move, valid moves are %v.\n", col, state.Actions())
			continue
		}
		return col, nil
	}
	return 0, ErrTooManyParsingErrors
}
