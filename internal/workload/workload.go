// Package workload generates a paced stream of synthetic tasks for the tower.
package workload

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xonecas/zoea-tower/internal/core"
	"golang.org/x/time/rate"
)

// SourceID is the source recorded on generated tasks.
const SourceID = "workload"

var ErrNoFloors = errors.New("no floors to submit to")

// Submitter accepts tasks for a floor. *core.Simulation satisfies it.
type Submitter interface {
	Submit(floor int, req core.TaskRequest) (core.Task, error)
}

// Template is a task shape the generator draws from.
type Template struct {
	Title       string
	Description string
	Priority    core.Priority
}

// DefaultTemplates exercise every delegation strategy.
var DefaultTemplates = []Template{
	{"Patch vulnerability", "Upgrade the TLS library on the edge proxies", "P2"},
	{"Quarterly payroll run", "Reconcile expense reports before payroll closes", "P3"},
	{"Regression sweep", "Verify the release candidate against the QA suite", "P2"},
	{"Draft vendor contract", "Review licensing terms with the supplier", "P3"},
	{"User survey", "Analyze churn interviews and study the findings", "P2"},
	{"Launch campaign", "Brand refresh with social media promotion for the new feature", "P2"},
	{"Ship onboarding feature", "Implement and deploy the new onboarding flow with test coverage", "high"},
	{"Billing migration", "Migrate invoices to the new finance system and verify totals", "P1"},
	{"Breach response", "Company-wide security incident with legal and compliance review", "critical"},
	{"All hands planning", "Budget and research priorities for next quarter", "P2"},
}

// Options configures a generator.
type Options struct {
	Floors        []int
	Templates     []Template
	RatePerSecond float64
	Burst         int
	// OnSubmit is called after each accepted submission.
	OnSubmit func(floor int, task core.Task)
}

// Generator submits templated tasks to random floors at a limited rate.
type Generator struct {
	sub       Submitter
	rng       core.RNG
	floors    []int
	templates []Template
	limiter   *rate.Limiter
	onSubmit  func(int, core.Task)
}

// NewGenerator creates a generator. A non-positive rate disables it.
func NewGenerator(sub Submitter, rng core.RNG, opts Options) *Generator {
	templates := opts.Templates
	if len(templates) == 0 {
		templates = DefaultTemplates
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	g := &Generator{
		sub:       sub,
		rng:       rng,
		floors:    append([]int(nil), opts.Floors...),
		templates: templates,
		onSubmit:  opts.OnSubmit,
	}
	if opts.RatePerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return g
}

// Next draws the next floor and task request.
func (g *Generator) Next() (int, core.TaskRequest, error) {
	if len(g.floors) == 0 {
		return 0, core.TaskRequest{}, ErrNoFloors
	}
	floor := g.floors[g.rng.IntN(len(g.floors))]
	tpl := g.templates[g.rng.IntN(len(g.templates))]
	return floor, core.TaskRequest{
		ID:          uuid.New().String(),
		Title:       tpl.Title,
		Description: tpl.Description,
		Priority:    tpl.Priority,
		Source:      SourceID,
	}, nil
}

// SubmitOne draws a task and submits it.
func (g *Generator) SubmitOne() (int, core.Task, error) {
	floor, req, err := g.Next()
	if err != nil {
		return 0, core.Task{}, err
	}
	task, err := g.sub.Submit(floor, req)
	if err != nil {
		return floor, task, fmt.Errorf("submit %s to floor %d: %w", req.ID, floor, err)
	}
	if g.onSubmit != nil {
		g.onSubmit(floor, task)
	}
	return floor, task, nil
}

// Run submits tasks until ctx is cancelled. It returns immediately when the
// generator is disabled.
func (g *Generator) Run(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if len(g.floors) == 0 {
		return ErrNoFloors
	}

	log.Info().Float64("rate", float64(g.limiter.Limit())).Int("floors", len(g.floors)).Msg("Workload generator started")
	for {
		// Wait fails early when the next token would land past ctx's deadline.
		if err := g.limiter.Wait(ctx); err != nil {
			<-ctx.Done()
			return nil
		}

		floor, task, err := g.SubmitOne()
		if err != nil {
			log.Warn().Err(err).Msg("Workload submission rejected")
			continue
		}
		log.Debug().
			Str("task", task.ID).
			Int("floor", floor).
			Str("title", task.Title).
			Str("complexity", string(task.Complexity)).
			Msg("Workload task submitted")
	}
}
