package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Sender delivers a text message to a recipient through a messaging gateway.
type Sender interface {
	Send(ctx context.Context, recipientID int64, text string) error
}

// Report summarises one dispatch round. Failures are in notification order.
type Report struct {
	Attempted int
	Delivered int
	// Skipped counts notifications never sent because ctx ended first.
	Skipped  int
	Failures []*DeliveryError
}

// Dispatcher sends notifications with bounded concurrency.
type Dispatcher struct {
	sender Sender
	limit  int
}

func NewDispatcher(sender Sender, concurrency int) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{sender: sender, limit: concurrency}
}

// Dispatch attempts every notification once. A failed send is recorded and
// never stops the others.
func (d *Dispatcher) Dispatch(ctx context.Context, notifications []Notification) Report {
	var rep Report
	if len(notifications) == 0 {
		return rep
	}

	errs := make([]error, len(notifications))
	attempted := make([]bool, len(notifications))

	var g errgroup.Group
	g.SetLimit(d.limit)
	for i, n := range notifications {
		if ctx.Err() != nil {
			break
		}
		attempted[i] = true
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					errs[i] = fmt.Errorf("send panicked: %v", p)
				}
			}()
			errs[i] = d.sender.Send(ctx, n.RecipientID, n.Text)
			return nil
		})
	}
	_ = g.Wait()

	for i, n := range notifications {
		if !attempted[i] {
			rep.Skipped++
			continue
		}
		rep.Attempted++
		if errs[i] != nil {
			rep.Failures = append(rep.Failures, &DeliveryError{RecipientID: n.RecipientID, Err: errs[i]})
			continue
		}
		rep.Delivered++
	}
	return rep
}
