// Package command parses the fixed chat grammar of the bot:
//
//	add YYYY-MM-DD <description>
//	delete YYYY-MM-DD
//	deleteall
//	list
//
// plus start and help. A leading slash and a Telegram "@botname" suffix on
// the command word are accepted.
package command

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/pathakanu/remindbot/internal/model"
)

// Kind identifies a parsed command.
type Kind int

const (
	Unknown Kind = iota
	Start
	Help
	Add
	Delete
	DeleteAll
	List
)

var (
	// ErrFormat means the command word was recognised but its arguments were not.
	ErrFormat = errors.New("malformed command")
	// ErrUnknown means the text doesn't start with a known command.
	ErrUnknown = errors.New("unknown command")
)

// Command is a validated request from a chat.
type Command struct {
	Kind        Kind
	Date        string
	Description string
}

var (
	addArgs  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(.+)$`)
	dateOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Parse turns raw chat text into a Command. Malformed arguments yield a
// Command with Kind set and ErrFormat, so callers can answer with the
// matching usage line.
func Parse(text string) (Command, error) {
	text = strings.TrimSpace(text)
	word, rest, _ := strings.Cut(text, " ")
	word = strings.TrimPrefix(word, "/")
	if at := strings.IndexByte(word, '@'); at >= 0 {
		word = word[:at]
	}
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(word) {
	case "start":
		return Command{Kind: Start}, nil
	case "help":
		return Command{Kind: Help}, nil
	case "list", "reminders":
		return Command{Kind: List}, nil
	case "deleteall":
		return Command{Kind: DeleteAll}, nil

	case "add":
		cmd := Command{Kind: Add}
		m := addArgs.FindStringSubmatch(rest)
		if m == nil || !validDate(m[1]) {
			return cmd, ErrFormat
		}
		cmd.Date = m[1]
		cmd.Description = strings.TrimSpace(m[2])
		if cmd.Description == "" {
			return cmd, ErrFormat
		}
		return cmd, nil

	case "delete", "deleted":
		cmd := Command{Kind: Delete}
		if !dateOnly.MatchString(rest) || !validDate(rest) {
			return cmd, ErrFormat
		}
		cmd.Date = rest
		return cmd, nil

	default:
		return Command{Kind: Unknown}, ErrUnknown
	}
}

// Usage returns the format hint shown when a command is malformed.
func Usage(k Kind) string {
	switch k {
	case Delete:
		return "Wrong format. Use 'delete YYYY-MM-DD'."
	default:
		return "Wrong format. Use 'add YYYY-MM-DD Description'."
	}
}

func validDate(s string) bool {
	_, err := time.Parse(model.DateLayout, s)
	return err == nil
}
