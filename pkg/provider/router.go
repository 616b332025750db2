// Package provider dispatches prompts to interchangeable text-generation
// backends. A model identifier is mapped to a provider family by prefix; each
// family shapes its own request behind the single Invoke call.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/health-intelligence-engine/internal/domain"
)

// Family identifies a provider backend.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyGemini    Family = "gemini"
	FamilyAnthropic Family = "anthropic"
)

const (
	DefaultTimeout     = 10 * time.Second
	defaultRateLimit   = 5
	defaultTemperature = 0.7
	defaultTopP        = 0.9
	defaultMaxTokens   = 1024
)

// generator performs one completion request for a family.
type generator interface {
	generate(ctx context.Context, modelID, prompt string) (string, error)
}

// route maps a model identifier prefix to a family. Order matters only for
// overlapping prefixes, of which there are none today.
type route struct {
	prefix string
	family Family
}

var routes = []route{
	{prefix: "gpt-", family: FamilyOpenAI},
	{prefix: "o1", family: FamilyOpenAI},
	{prefix: "o3", family: FamilyOpenAI},
	{prefix: "o4", family: FamilyOpenAI},
	{prefix: "gemini-", family: FamilyGemini},
	{prefix: "claude-", family: FamilyAnthropic},
}

type backend struct {
	family     Family
	gen        generator
	apiKey     string
	configured bool
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
}

// Router implements domain.ModelInvoker over the configured families.
type Router struct {
	logger   *logrus.Logger
	timeout  time.Duration
	backends map[Family]*backend
}

// NewRouter creates a router for the configured provider families. Families
// without an API key are still routable but fail with a ProviderError.
func NewRouter(cfg domain.ProvidersConfig, logger *logrus.Logger) *Router {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r := &Router{
		logger:   logger,
		timeout:  timeout,
		backends: make(map[Family]*backend, 3),
	}

	r.register(FamilyOpenAI, cfg.OpenAI, newOpenAIClient(withDefaults(cfg.OpenAI, "https://api.openai.com/v1"), timeout))
	r.register(FamilyGemini, cfg.Gemini, newGeminiClient(withDefaults(cfg.Gemini, "https://generativelanguage.googleapis.com/v1beta"), timeout))
	r.register(FamilyAnthropic, cfg.Anthropic, newAnthropicClient(withDefaults(cfg.Anthropic, "https://api.anthropic.com/v1"), timeout))

	return r
}

func (r *Router) register(family Family, cfg domain.ProviderConfig, gen generator) {
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}

	r.backends[family] = &backend{
		family:     family,
		gen:        gen,
		apiKey:     cfg.APIKey,
		configured: cfg.APIKey != "",
		breaker:    newBreaker(string(family), r.logger),
		limiter:    rate.NewLimiter(rate.Limit(rateLimit), 1),
	}
}

func withDefaults(cfg domain.ProviderConfig, baseURL string) domain.ProviderConfig {
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.TopP == 0 {
		cfg.TopP = defaultTopP
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return cfg
}

// Resolve returns the family serving modelID.
func (r *Router) Resolve(modelID string) (Family, error) {
	id := strings.ToLower(strings.TrimSpace(modelID))
	if id != "" {
		for _, rt := range routes {
			if strings.HasPrefix(id, rt.prefix) {
				return rt.family, nil
			}
		}
	}
	return "", domain.NewUnsupportedModelError(modelID)
}

// Supports reports an UnsupportedModel error for unroutable identifiers.
func (r *Router) Supports(modelID string) error {
	_, err := r.Resolve(modelID)
	return err
}

// Invoke sends prompt to the family serving modelID and returns the first text
// candidate. It never retries; failures carry family, model and upstream status.
func (r *Router) Invoke(ctx context.Context, prompt, modelID string) (string, error) {
	family, err := r.Resolve(modelID)
	if err != nil {
		return "", err
	}
	b := r.backends[family]
	model := strings.TrimSpace(modelID)

	if !b.configured {
		return "", domain.NewProviderError(string(family), model, 0,
			fmt.Sprintf("no credentials configured for %s", family), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := b.limiter.Wait(ctx); err != nil {
		return "", domain.NewProviderError(string(family), model, 0, "rate limit wait failed", err)
	}

	start := time.Now()
	result, err := b.breaker.Execute(func() (interface{}, error) {
		text, err := b.gen.generate(ctx, model, prompt)
		if err != nil {
			return nil, err
		}
		return text, nil
	})

	fields := logrus.Fields{
		"family":      family,
		"model":       model,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		perr := r.providerError(ctx, b, model, err)
		fields["error"] = perr.Message
		r.logger.WithFields(fields).Warn("Provider invocation failed")
		return "", perr
	}

	text := result.(string)
	fields["response_chars"] = len(text)
	r.logger.WithFields(fields).Info("Provider invocation completed")
	return text, nil
}

func (r *Router) providerError(ctx context.Context, b *backend, model string, err error) *domain.EngineError {
	family := string(b.family)

	var se *statusError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return domain.NewProviderError(family, model, 0, fmt.Sprintf("%s circuit breaker is open", family), err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded), isTimeout(err):
		return domain.NewProviderError(family, model, 0,
			fmt.Sprintf("%s request timed out after %s", family, r.timeout), redactError(err, b.apiKey))
	case errors.As(err, &se):
		return domain.NewProviderError(family, model, se.status,
			fmt.Sprintf("%s returned status %d", family, se.status), redactError(err, b.apiKey))
	default:
		return domain.NewProviderError(family, model, 0,
			fmt.Sprintf("%s request failed", family), redactError(err, b.apiKey))
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// Models returns the catalog with availability set from configured credentials.
func (r *Router) Models() []domain.ModelInfo {
	out := make([]domain.ModelInfo, 0, len(catalog))
	for _, m := range catalog {
		info := m
		if b, ok := r.backends[Family(m.Family)]; ok {
			info.Available = b.configured
		}
		out = append(out, info)
	}
	return out
}

func newBreaker(name string, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Provider circuit breaker state changed")
		},
		IsSuccessful: breakerSuccess,
	})
}

// breakerSuccess keeps caller mistakes and caller cancellation from tripping
// the family breaker. Only upstream faults count as failures.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= 400 && se.status < 500 &&
			se.status != http.StatusRequestTimeout && se.status != http.StatusTooManyRequests
	}
	return false
}
