// Package validator drives a rule set through search, book info, chapter
// list and content against the live site and reports a verdict per stage.
package validator

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/dreamerjackson/bookcrawler/aggregate"
	"github.com/dreamerjackson/bookcrawler/extract"
	"github.com/dreamerjackson/bookcrawler/fetch"
	"github.com/dreamerjackson/bookcrawler/markup"
	"github.com/dreamerjackson/bookcrawler/metrics"
	"github.com/dreamerjackson/bookcrawler/source"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultProbeKeyword = "测试"

type Option func(opts *options)

type options struct {
	Fetcher      fetch.Fetcher
	Extractor    *extract.Extractor
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	ProbeKeyword string
	WorkCount    int
}

var defaultOptions = options{
	Logger:       zap.NewNop(),
	ProbeKeyword: DefaultProbeKeyword,
	WorkCount:    4,
}

func WithFetcher(fetcher fetch.Fetcher) Option {
	return func(opts *options) {
		opts.Fetcher = fetcher
	}
}

func WithExtractor(e *extract.Extractor) Option {
	return func(opts *options) {
		opts.Extractor = e
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *options) {
		opts.Metrics = m
	}
}

func WithProbeKeyword(keyword string) Option {
	return func(opts *options) {
		opts.ProbeKeyword = keyword
	}
}

func WithWorkCount(workCount int) Option {
	return func(opts *options) {
		opts.WorkCount = workCount
	}
}

type Validator struct {
	options
	search *aggregate.Coordinator
}

func New(opts ...Option) *Validator {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Fetcher == nil {
		options.Fetcher = fetch.NewHTTPFetcher(fetch.WithLogger(options.Logger))
	}
	if options.Extractor == nil {
		options.Extractor = extract.New(extract.WithLogger(options.Logger))
	}
	if options.ProbeKeyword == "" {
		options.ProbeKeyword = DefaultProbeKeyword
	}
	if options.WorkCount <= 0 {
		options.WorkCount = defaultOptions.WorkCount
	}

	return &Validator{
		options: options,
		search: aggregate.New(
			aggregate.WithFetcher(options.Fetcher),
			aggregate.WithExtractor(options.Extractor),
			aggregate.WithLogger(options.Logger),
		),
	}
}

type run struct {
	*Validator
	rs      *source.RuleSet
	verdict *Verdict
	current Stage
}

// record stores the outcome of the current stage and reports whether the
// next stage may run.
func (r *run) record(passed bool, err error, detail string) bool {
	res := &r.verdict.Stages[r.current]
	res.Detail = detail
	switch {
	case err != nil:
		res.Status = Failed
		res.Err = err
	case passed:
		res.Status = Passed
	default:
		res.Status = Failed
	}

	r.Metrics.IncStage(r.current.String(), res.Status.String())
	r.Logger.Debug("validation stage",
		zap.String("source", r.rs.Name),
		zap.Stringer("stage", r.current),
		zap.Stringer("status", res.Status),
		zap.Error(err))

	if res.Status != Passed {
		return false
	}
	r.current++

	return true
}

func (r *run) page(ctx context.Context, url string) (*markup.Document, error) {
	page, err := r.Fetcher.Fetch(ctx, fetch.NewRequest(r.rs, url, r.rs.PageEncoding()))
	if err != nil {
		return nil, err
	}

	return markup.Parse(page.Body, markup.WithLocation(page.URL))
}

// Validate runs the stages in order. A stage runs only when the previous
// one passed; an error fails the current stage and ends the run.
func (v *Validator) Validate(ctx context.Context, rs *source.RuleSet) *Verdict {
	r := &run{Validator: v, rs: rs, verdict: newVerdict(rs.ID, rs.Name)}
	start := time.Now()
	defer func() {
		r.verdict.Duration = time.Since(start)
		if err := recover(); err != nil {
			v.Logger.Error("validation panic",
				zap.String("source", rs.Name),
				zap.Any("err", err),
				zap.String("stack", string(debug.Stack())))
			if r.current < stageCount {
				r.record(false, fmt.Errorf("panic: %v", err), "")
			}
		}
	}()

	r.execute(ctx)
	v.Logger.Info("validation finished",
		zap.String("source", rs.Name),
		zap.Bool("ok", r.verdict.OK()))

	return r.verdict
}

func (r *run) execute(ctx context.Context) {
	hits, err := r.search.SearchSource(ctx, r.ProbeKeyword, r.rs)
	if !r.record(len(hits) > 0, err, fmt.Sprintf("%d results", len(hits))) {
		return
	}

	doc, err := r.page(ctx, hits[0].BookURL)
	var info *extract.BookInfo
	if err == nil {
		info, err = r.Extractor.BookInfo(doc, r.rs.BookInfoRule, r.rs)
	}
	detail := ""
	if info != nil {
		detail = info.Title
	}
	if !r.record(err == nil, err, detail) {
		return
	}

	toc, err := r.Extractor.ChapterList(doc, r.rs.ChapterRule, r.rs)
	n := 0
	if toc != nil {
		n = len(toc.Chapters)
	}
	if !r.record(n > 0, err, fmt.Sprintf("%d chapters", n)) {
		return
	}

	doc, err = r.page(ctx, toc.Chapters[0].URL)
	var content *extract.Content
	if err == nil {
		content, err = r.Extractor.Content(doc, r.rs.ContentRule, r.rs)
	}
	size := 0
	if content != nil {
		size = len([]rune(content.Text))
	}
	r.record(size > 0, err, fmt.Sprintf("%d characters", size))
}

// ValidateAll validates rule sets concurrently. Verdicts are in input order.
func (v *Validator) ValidateAll(ctx context.Context, ruleSets []*source.RuleSet) []*Verdict {
	verdicts := make([]*Verdict, len(ruleSets))

	var g errgroup.Group
	g.SetLimit(v.WorkCount)
	for i, rs := range ruleSets {
		i, rs := i, rs
		g.Go(func() error {
			verdicts[i] = v.Validate(ctx, rs)
			return nil
		})
	}
	_ = g.Wait()

	return verdicts
}
