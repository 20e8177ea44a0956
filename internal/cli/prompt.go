package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/wizard"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type prompter struct {
	in     *bufio.Reader
	out    io.Writer
	secret func() (string, error)
}

func (a *app) prompter(cmd *cobra.Command) *prompter {
	p := &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.ErrOrStderr()}
	p.secret = a.opts.ReadSecret
	if p.secret == nil {
		p.secret = p.readSecret
	}
	return p
}

// readSecret disables echo on a terminal and falls back to a plain line otherwise.
func (p *prompter) readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return p.line()
}

func (p *prompter) line() (string, error) {
	s, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || s == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	s, err := p.line()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return s, nil
}

func (p *prompter) askSecret(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	return p.secret()
}

func (p *prompter) confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	s, err := p.line()
	if err != nil {
		return false, err
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "y" || s == "yes", nil
}

func (p *prompter) field(f wizard.Field, current string) (string, error) {
	if f.Secret {
		return p.askSecret(f.Label)
	}
	return p.ask(f.Label, current)
}

// fill walks the wizard to its last step. Interactively it asks for every field
// of a step once, then again for each field that failed; otherwise the first
// failing step ends the walk.
func (a *app) fill(cmd *cobra.Command, w *wizard.Wizard) error {
	p := a.prompter(cmd)
	asked := map[int]bool{}
	for {
		step := w.Step()
		if a.opts.Interactive && !asked[step] {
			asked[step] = true
			s := w.Current()
			if s.Title != "" && w.Len() > 1 {
				fmt.Fprintln(p.out, titleStyle.Render(fmt.Sprintf("Step %d/%d: %s", step+1, w.Len(), s.Title)))
			}
			for _, f := range s.Fields {
				if f.Secret && w.Value(f.Name) != "" {
					continue
				}
				v, err := p.field(f, w.Value(f.Name))
				if err != nil {
					return err
				}
				w.Set(f.Name, v)
			}
		}

		if w.Next() {
			if w.IsLast() {
				return nil
			}
			continue
		}
		if !a.opts.Interactive {
			return &domain.ValidationError{Fields: w.Errors()}
		}
		for _, f := range w.Current().Fields {
			msg := w.Error(f.Name)
			if msg == "" {
				continue
			}
			fmt.Fprintln(p.out, errorStyle.Render(msg))
			v, err := p.field(f, w.Value(f.Name))
			if err != nil {
				return err
			}
			w.Set(f.Name, v)
		}
	}
}

// setChanged copies the flags the user passed into the wizard.
func setChanged(cmd *cobra.Command, w *wizard.Wizard, flags map[string]string) {
	for flag, field := range flags {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetString(flag)
			w.Set(field, v)
		}
	}
}
