// Package workflow joins the model runtime, the chart executor and the image
// archive into the two user-facing flows: describing a dataset and charting it.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/KaramelBytes/vizloom-cli/internal/ai"
	"github.com/KaramelBytes/vizloom-cli/internal/archive"
	"github.com/KaramelBytes/vizloom-cli/internal/chart"
	"github.com/KaramelBytes/vizloom-cli/internal/dataset"
	"github.com/KaramelBytes/vizloom-cli/internal/logging"
	"github.com/KaramelBytes/vizloom-cli/internal/markdown"
)

// ErrNoRuntime is returned when a flow needs the model but none is configured.
var ErrNoRuntime = errors.New("no model runtime configured")

// Canvas size used when none is given.
const (
	DefaultWidth  = 800
	DefaultHeight = 500
)

// Options carries the generation settings taken from configuration.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	PromptChars int
}

// Service runs the flows. Charts are drawn one at a time on a single canvas.
type Service struct {
	rt     ai.Runtime
	opts   Options
	canvas *chart.Canvas
	exec   *chart.Executor
	store  *archive.Store
	log    *logging.Logger

	mu sync.Mutex
}

// New builds a Service. rt, canvas, store and log may be nil; flows that need the
// runtime then fail with ErrNoRuntime and images are not archived.
func New(rt ai.Runtime, opts Options, canvas *chart.Canvas, store *archive.Store, log *logging.Logger) *Service {
	if opts.Model == "" {
		opts.Model = ai.DefaultModel
	}
	if canvas == nil {
		canvas = chart.NewCanvas(DefaultWidth, DefaultHeight, chart.FormatPNG)
	}
	return &Service{
		rt:     rt,
		opts:   opts,
		canvas: canvas,
		exec:   chart.NewExecutor(nil),
		store:  store,
		log:    log,
	}
}

// Store returns the archive, or nil.
func (s *Service) Store() *archive.Store { return s.store }

// Canvas returns the drawing surface.
func (s *Service) Canvas() *chart.Canvas { return s.canvas }

// Description is the model's description of a dataset.
type Description struct {
	Markdown string   `json:"markdown"`
	HTML     string   `json:"html"`
	Model    string   `json:"model"`
	Usage    ai.Usage `json:"usage"`
}

// Describe asks the model for a short description of ds and renders it with
// the lite markdown renderer.
func (s *Service) Describe(ctx context.Context, ds *dataset.Dataset) (*Description, error) {
	prompt := ai.SummaryPrompt(ds.Raw, s.opts.PromptChars)
	resp, text, err := s.generate(ctx, s.opts.Model, ai.SummaryMessages(prompt))
	if err != nil {
		return nil, err
	}
	clean := ai.CleanSummary(text)
	return &Description{
		Markdown: clean,
		HTML:     markdown.Render(clean),
		Model:    modelOf(resp, s.opts.Model),
		Usage:    resp.Usage,
	}, nil
}

// Chart is the outcome of one chart request.
type Chart struct {
	Raw         string          `json:"-"`
	Code        string          `json:"code"`
	Model       string          `json:"model"`
	Config      *chart.Config   `json:"config"`
	Image       []byte          `json:"-"`
	ContentType string          `json:"content_type"`
	Record      *archive.Record `json:"record,omitempty"`
}

// GenerateCode asks the model for chart code and extracts it from the reply.
// The reply text is returned even when extraction fails.
func (s *Service) GenerateCode(ctx context.Context, ds *dataset.Dataset, question string) (raw, code, model string, err error) {
	prompt, err := ai.ChartPrompt(ds.Records(), question, ai.DefaultCanvasID)
	if err != nil {
		return "", "", "", err
	}
	model = ai.ChartModel(s.opts.Model)
	resp, raw, err := s.generate(ctx, model, ai.ChartMessages(prompt))
	if err != nil {
		return "", "", model, err
	}
	model = modelOf(resp, model)
	s.log.Debug("chart reply from %s:\n%s", model, raw)
	code, err = chart.Extract(raw)
	return raw, code, model, err
}

// Draw executes code on the canvas and returns a copy of the image.
func (s *Service) Draw(code string) (*Chart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.exec.Execute(code, s.canvas); err != nil {
		return nil, err
	}
	inst := s.exec.Handle().Current()
	img := s.canvas.Bytes()
	if inst == nil || img == nil {
		return nil, &chart.ExecutionError{Stage: "render", Err: errors.New("no chart was drawn")}
	}
	return &Chart{Code: code, Config: inst.Config(), Image: img, ContentType: s.canvas.ContentType()}, nil
}

// Chart generates code for question, draws it and archives the image when a
// store is configured.
func (s *Service) Chart(ctx context.Context, ds *dataset.Dataset, question string) (*Chart, error) {
	raw, code, model, err := s.GenerateCode(ctx, ds, question)
	if err != nil {
		return nil, err
	}
	out, err := s.Draw(code)
	if err != nil {
		s.log.Error("chart execution failed: %v", err)
		return nil, err
	}
	out.Raw, out.Model = raw, model
	if s.store != nil {
		rec, err := s.Archive(ctx, out, question)
		if err != nil {
			return nil, err
		}
		out.Record = rec
	}
	return out, nil
}

// Archive stores a drawn chart under a fresh name.
func (s *Service) Archive(ctx context.Context, c *Chart, prompt string) (*archive.Record, error) {
	if s.store == nil {
		return nil, errors.New("no archive configured")
	}
	typ := ""
	if c.Config != nil {
		typ = c.Config.Type
	}
	rec, err := s.store.Save(ctx, archive.Image{
		Name:      s.store.NewImageName(typ, s.canvas.Ext()),
		Data:      c.Image,
		ChartType: typ,
		Prompt:    prompt,
		Code:      c.Code,
	})
	if err != nil {
		return nil, fmt.Errorf("archive chart: %w", err)
	}
	s.log.Info("archived %s (%d bytes)", rec.Name, rec.Size)
	return &rec, nil
}

func (s *Service) generate(ctx context.Context, model string, msgs []ai.Message) (*ai.GenerateResponse, string, error) {
	if s.rt == nil {
		return nil, "", ErrNoRuntime
	}
	resp, err := s.rt.Generate(ctx, ai.GenerateRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return nil, "", err
	}
	text, err := ai.FirstContent(resp)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(text) == "" {
		return nil, "", fmt.Errorf("model %s returned an empty reply", model)
	}
	s.log.Debug("model %s used %d prompt and %d completion tokens", modelOf(resp, model), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, text, nil
}

func modelOf(resp *ai.GenerateResponse, fallback string) string {
	if resp != nil && resp.Model != "" {
		return resp.Model
	}
	return fallback
}
