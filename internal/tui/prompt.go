package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
)

// Prompter asks questions with huh forms. When stdin is not a terminal it
// switches to huh's accessible mode, which reads plain lines.
type Prompter struct {
	In         io.Reader
	Out        io.Writer
	Accessible bool
}

// NewPrompter returns a prompter on stdin and stderr.
func NewPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stderr, Accessible: !IsInteractive()}
}

func (p *Prompter) run(field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithAccessible(p.Accessible).
		WithShowHelp(false)
	if p.In != nil {
		form = form.WithInput(p.In)
	}
	if p.Out != nil {
		form = form.WithOutput(p.Out)
	}
	if err := form.Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

// Prompt represents a simple interactive prompt configuration
type Prompt struct {
	Message     string
	Description string
	Default     string
	Placeholder string
	Required    bool
	Secret      bool
}

// String displays an input prompt and returns the trimmed answer.
func (p *Prompter) String(pr Prompt) (string, error) {
	value := pr.Default

	input := huh.NewInput().
		Title(pr.Message).
		Description(pr.Description).
		Placeholder(pr.Placeholder).
		Value(&value).
		Validate(func(s string) error {
			if pr.Required && strings.TrimSpace(s) == "" {
				return fmt.Errorf("value is required")
			}
			return nil
		})
	if pr.Secret {
		input = input.EchoMode(huh.EchoModePassword)
	}

	if err := p.run(input); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// Text displays a multi-line prompt, used for free-form answers.
func (p *Prompter) Text(pr Prompt) (string, error) {
	value := pr.Default

	text := huh.NewText().
		Title(pr.Message).
		Description(pr.Description).
		Placeholder(pr.Placeholder).
		Value(&value)

	if err := p.run(text); err != nil {
		return "", err
	}
	return value, nil
}

// Confirm displays a yes/no confirmation prompt
func (p *Prompter) Confirm(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue

	confirm := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed)

	if err := p.run(confirm); err != nil {
		return false, err
	}
	return confirmed, nil
}

// Choice is one option of Select.
type Choice[T comparable] struct {
	Label string
	Value T
}

// Select displays a selection prompt and returns the chosen value.
func Select[T comparable](p *Prompter, message string, choices []Choice[T]) (T, error) {
	var selected T
	if len(choices) == 0 {
		return selected, fmt.Errorf("no options provided")
	}

	options := make([]huh.Option[T], len(choices))
	for i, c := range choices {
		options[i] = huh.NewOption(c.Label, c.Value)
	}

	field := huh.NewSelect[T]().
		Title(message).
		Options(options...).
		Value(&selected)

	if err := p.run(field); err != nil {
		return selected, err
	}
	return selected, nil
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ShouldPrompt returns true if prompts should be shown based on environment
// Prompts are disabled in CI environments or when stdin is not a terminal
func ShouldPrompt() bool {
	ciEnvVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"TRAVIS",
		"CIRCLECI",
		"BUILDKITE",
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return false
		}
	}

	return IsInteractive()
}
