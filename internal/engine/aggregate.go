package engine

import (
	"strings"

	"github.com/pathakanu/remindbot/internal/model"
)

// DefaultLabel prefixes every reminder line.
const DefaultLabel = "Reminder"

const lineSep = "\n\n"

// Notification is the single message a recipient gets on a tick.
type Notification struct {
	RecipientID int64
	Text        string
}

// Formatter renders one reminder line as "<Label>: <date> <description>".
type Formatter struct {
	Label string
}

func (f Formatter) Line(r model.Reminder) string {
	label := f.Label
	if label == "" {
		label = DefaultLabel
	}

	var sb strings.Builder
	sb.Grow(len(label) + len(r.Date) + len(r.Description) + 3)
	sb.WriteString(label)
	sb.WriteString(": ")
	sb.WriteString(r.Date)
	sb.WriteString(" ")
	sb.WriteString(r.Description)
	return sb.String()
}

// Aggregate folds reminders into one notification per recipient. Recipients
// appear in order of their first reminder and lines keep the input order.
func Aggregate(reminders []model.Reminder, f Formatter) []Notification {
	if len(reminders) == 0 {
		return nil
	}

	index := make(map[int64]int)
	var recipients []int64
	var lines [][]string
	for _, r := range reminders {
		i, ok := index[r.RecipientID]
		if !ok {
			i = len(recipients)
			index[r.RecipientID] = i
			recipients = append(recipients, r.RecipientID)
			lines = append(lines, nil)
		}
		lines[i] = append(lines[i], f.Line(r))
	}

	notifications := make([]Notification, len(recipients))
	for i, id := range recipients {
		notifications[i] = Notification{
			RecipientID: id,
			Text:        strings.Join(lines[i], lineSep),
		}
	}
	return notifications
}
