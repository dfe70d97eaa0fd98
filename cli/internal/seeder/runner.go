package seeder

import (
	"context"
	"fmt"
	"time"

	"github.com/dmaynor/property-mangement-pane/cli/internal/client"
	"github.com/dmaynor/property-mangement-pane/common/logging"
)

// Sender delivers one webhook payload.
type Sender interface {
	Webhook(ctx context.Context, connector string, payload []byte) (*client.BatchResult, error)
}

// Summary totals one seeding run.
type Summary struct {
	Deliveries int `json:"deliveries"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Changed    int `json:"changed"`
	Noop       int `json:"noop"`
	Rejected   int `json:"rejected"`
	// Unexpected counts deliveries whose outcome disagreed with whether
	// they were generated faulty.
	Unexpected int `json:"unexpected"`
}

// Runner handles the seeding execution
type Runner struct {
	Config *Config
	Sender Sender
	Logger *logging.Logger
}

func NewRunner(config *Config, sender Sender, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{Config: config, Sender: sender, Logger: logger}
}

// Run sends every generated delivery in order. A delivery the service
// refuses is counted and skipped; only a cancelled ctx stops the run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	d := r.Config.Defaults
	deliveries := GenerateDeliveries(d)
	passes := 1
	if d.Redeliver {
		passes = 2
	}

	r.Logger.Info("starting seeder",
		logging.Connector(d.Connector),
		"portfolios", d.Portfolios,
		"seed", d.Seed,
		"fault_rate", d.FaultRate,
		logging.Count(len(deliveries)*passes))

	sum := &Summary{}
	for pass := 0; pass < passes; pass++ {
		for i, dl := range deliveries {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			r.send(ctx, dl, pass > 0, sum)

			if d.Interval > 0 && i < len(deliveries)-1 {
				select {
				case <-ctx.Done():
					return sum, ctx.Err()
				case <-time.After(d.Interval):
				}
			}
		}
	}

	r.Logger.Info("seeding complete",
		"sent", sum.Sent,
		"failed", sum.Failed,
		"changed", sum.Changed,
		"noop", sum.Noop,
		"rejected", sum.Rejected,
		"unexpected", sum.Unexpected)
	return sum, nil
}

func (r *Runner) send(ctx context.Context, dl Delivery, repeat bool, sum *Summary) {
	sum.Deliveries++

	payload, err := dl.Payload()
	if err != nil {
		sum.Failed++
		r.Logger.Warn("failed to encode delivery", logging.EntityType(dl.EntityType), logging.Error(err))
		return
	}

	res, err := r.Sender.Webhook(ctx, r.Config.Defaults.Connector, payload)
	if err != nil {
		sum.Failed++
		r.Logger.Warn("delivery failed", logging.EntityType(dl.EntityType), logging.Error(err))
		return
	}
	sum.Sent++
	sum.Changed += res.Summary.Changed
	sum.Noop += res.Summary.Noop
	sum.Rejected += res.Summary.Failed

	if expected := outcomeMatches(dl, repeat, res.Summary); !expected {
		sum.Unexpected++
		r.Logger.Warn("unexpected delivery outcome",
			logging.EntityType(dl.EntityType),
			logging.IngestID(res.IngestID),
			"faulty", dl.Faulty,
			"repeat", repeat,
			"summary", fmt.Sprintf("%+v", res.Summary))
	}
}

// outcomeMatches reports whether s is what dl should have produced: a
// rejection for faulty deliveries, a change on first sight and a noop on
// redelivery.
func outcomeMatches(dl Delivery, repeat bool, s client.BatchSummary) bool {
	switch {
	case dl.Faulty:
		return s.Failed == 1
	case repeat:
		return s.Noop == 1
	default:
		return s.Changed == 1
	}
}
