// Package console renders the chat in the terminal and reads user input.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/soyeahso/yui/internal/domain"
)

// Options configures a Console.
type Options struct {
	AgentName string // panel title for assistant messages; default "Yui"
	UserName  string // panel title for user messages; default "You"
	Width     int    // panel width in columns; default 80
}

// Console shows messages as titled panels, coloured by role, and reads lines
// of input. It implements agent.Presenter.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	in     *bufio.Reader
	opts   Options
	styles styles
}

type styles struct {
	user          lipgloss.Style
	assistant     lipgloss.Style
	userName      lipgloss.Style
	assistantName lipgloss.Style
	notice        lipgloss.Style
	timestamp     lipgloss.Style
	prompt        lipgloss.Style
}

// New creates a console reading from in and writing to out.
func New(in io.Reader, out io.Writer, opts Options) *Console {
	if opts.AgentName == "" {
		opts.AgentName = "Yui"
	}
	if opts.UserName == "" {
		opts.UserName = "You"
	}
	if opts.Width <= 0 {
		opts.Width = 80
	}

	const green, blue = lipgloss.Color("2"), lipgloss.Color("69")

	r := lipgloss.NewRenderer(out)
	panel := func(color lipgloss.Color) lipgloss.Style {
		return r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(color).
			Foreground(color).
			Padding(0, 1)
	}

	return &Console{
		out:  out,
		in:   bufio.NewReader(in),
		opts: opts,
		styles: styles{
			user:          panel(green),
			assistant:     panel(blue),
			userName:      r.NewStyle().Foreground(green).Bold(true),
			assistantName: r.NewStyle().Foreground(blue).Bold(true),
			notice:        r.NewStyle().Foreground(lipgloss.Color("3")).Italic(true),
			timestamp:     r.NewStyle().Faint(true),
			prompt:        r.NewStyle().Foreground(green).Bold(true),
		},
	}
}

// Present renders one message as a panel titled with the speaker and time.
func (c *Console) Present(role domain.Role, timestamp time.Time, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.render(role, timestamp, text))
}

func (c *Console) render(role domain.Role, timestamp time.Time, text string) string {
	name, nameStyle, style := c.opts.AgentName, c.styles.assistantName, c.styles.assistant
	if role == domain.RoleUser {
		name, nameStyle, style = c.opts.UserName, c.styles.userName, c.styles.user
	}

	title := nameStyle.Render(name) +
		" • " + c.styles.timestamp.Render(timestamp.Local().Format("15:04:05"))

	// Width sets the content box, which excludes the border.
	body := style.Width(c.opts.Width - 2).Render(strings.TrimRight(text, "\n"))
	return title + "\n" + body
}

// Notice prints a one-line status message, such as an error or a tool event.
func (c *Console) Notice(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.styles.notice.Render(fmt.Sprintf(format, args...)))
}

// PromptForInput shows the input prompt and returns the next line without
// its line ending. It returns io.EOF once input is exhausted.
func (c *Console) PromptForInput() (string, error) {
	c.mu.Lock()
	fmt.Fprint(c.out, c.styles.prompt.Render(c.opts.UserName)+": ")
	c.mu.Unlock()

	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
