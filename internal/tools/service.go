package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/patrickoleary/vtkapi-mcp/internal/analytics"
	"github.com/patrickoleary/vtkapi-mcp/internal/apiindex"
	"github.com/patrickoleary/vtkapi-mcp/internal/validation"
	"github.com/patrickoleary/vtkapi-mcp/internal/validation/cache"
	"github.com/patrickoleary/vtkapi-mcp/pkg/health"
	"github.com/patrickoleary/vtkapi-mcp/pkg/logger"
	"github.com/patrickoleary/vtkapi-mcp/pkg/metrics"
)

const previewLen = 500

// Options carries the optional collaborators of a Service. Zero values
// disable the matching concern.
type Options struct {
	Cache      cache.Cache
	Recorder   analytics.Recorder
	Metrics    *metrics.Metrics
	MaxResults int
}

// Service is the lookup and validation surface shared by the tools and the
// HTTP API.
type Service struct {
	validator  *validation.CodeValidator
	cache      cache.Cache
	recorder   analytics.Recorder
	metrics    *metrics.Metrics
	maxResults int
	logger     *slog.Logger
}

func NewService(v *validation.CodeValidator, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 100
	}
	s := &Service{
		validator:  v,
		cache:      opts.Cache,
		recorder:   opts.Recorder,
		metrics:    opts.Metrics,
		maxResults: opts.MaxResults,
		logger:     slog.Default().With("component", "vtk-service"),
	}
	if s.metrics != nil {
		s.metrics.IndexClasses.Set(float64(v.Index().Len()))
		s.metrics.IndexModules.Set(float64(v.Index().ModuleCount()))
	}
	return s
}

func (s *Service) Index() *apiindex.Index { return s.validator.Index() }

func (s *Service) Cache() cache.Cache { return s.cache }

// IndexCheck reports the index as degraded when it holds no classes: the
// service still answers, but every class is unknown.
func (s *Service) IndexCheck() health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		x := s.Index()
		if x.Len() == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "api index is empty"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d classes in %d modules", x.Len(), x.ModuleCount()),
		}
	}
}

// CodeReport is the outcome of ValidateCode.
type CodeReport struct {
	IsValid  bool               `json:"is_valid"`
	Errors   []validation.Error `json:"errors"`
	Report   string             `json:"report"`
	CacheHit bool               `json:"cache_hit"`
}

// ValidateCode validates code through the result cache. Only a failing
// cache can produce an error; problems in the code are part of the report.
func (s *Service) ValidateCode(ctx context.Context, code string) (CodeReport, error) {
	start := time.Now()
	res, hit, err := s.cache.GetOrCompute(ctx, code, func() (*validation.Result, error) {
		return s.validator.ValidateCode(code), nil
	})
	if err != nil {
		return CodeReport{}, err
	}
	latency := time.Since(start)

	if s.metrics != nil {
		status := "miss"
		if hit {
			status = "hit"
			s.metrics.CacheHitsTotal.Inc()
		} else {
			s.metrics.CacheMissesTotal.Inc()
		}
		s.metrics.ValidationLatency.WithLabelValues(status).Observe(latency.Seconds())
		s.metrics.ValidationsTotal.WithLabelValues(resultLabel(res.IsValid)).Inc()
		for _, e := range res.Errors {
			s.metrics.ValidationErrorsTotal.WithLabelValues(string(e.Type)).Inc()
		}
	}
	if s.recorder != nil {
		s.recorder.Record(analytics.NewCodeEvent(res, latency, hit, logger.RequestID(ctx)))
	}
	logger.FromContext(ctx).Debug("code validated",
		"valid", res.IsValid,
		"errors", len(res.Errors),
		"cache_hit", hit,
		"latency", latency,
	)
	return CodeReport{IsValid: res.IsValid, Errors: res.Errors, Report: res.FormatErrors(), CacheHit: hit}, nil
}

func (s *Service) ValidateImport(ctx context.Context, statement string) validation.ImportResult {
	start := time.Now()
	res := s.validator.ValidateImport(statement)
	if s.metrics != nil {
		s.metrics.ValidationsTotal.WithLabelValues(resultLabel(res.Valid)).Inc()
		if !res.Valid {
			s.metrics.ValidationErrorsTotal.WithLabelValues(string(validation.ErrorImport)).Inc()
		}
	}
	if s.recorder != nil {
		s.recorder.Record(analytics.NewImportEvent(res, time.Since(start), logger.RequestID(ctx)))
	}
	return res
}

// ClassInfo is the summary of one class.
type ClassInfo struct {
	ClassName      string   `json:"class_name"`
	Module         string   `json:"module"`
	ContentPreview string   `json:"content_preview"`
	Methods        []string `json:"methods"`
}

func (s *Service) ClassInfo(name string) (ClassInfo, bool) {
	rec, ok := s.Index().Get(name)
	if !ok {
		return ClassInfo{}, false
	}
	methods := rec.Methods()
	if methods == nil {
		methods = []string{}
	}
	return ClassInfo{
		ClassName:      rec.ClassName,
		Module:         rec.Module,
		ContentPreview: preview(rec.Content),
		Methods:        methods,
	}, true
}

// Search clamps limit to the configured maximum.
func (s *Service) Search(query string, limit int) []apiindex.SearchResult {
	if limit > s.maxResults {
		limit = s.maxResults
	}
	return s.Index().Search(query, limit)
}

type ModuleClasses struct {
	Module  string   `json:"module"`
	Classes []string `json:"classes"`
	Count   int      `json:"count"`
}

func (s *Service) ModuleClasses(module string) ModuleClasses {
	classes := s.Index().ClassesInModule(module)
	return ModuleClasses{Module: module, Classes: classes, Count: len(classes)}
}

func (s *Service) MethodInfo(className, methodName string) (apiindex.MethodInfo, bool) {
	return s.Index().GetMethod(className, methodName)
}

// preview returns the first previewLen runes of content followed by "...".
func preview(content string) string {
	if utf8.RuneCountInString(content) > previewLen {
		content = string([]rune(content)[:previewLen])
	}
	return content + "..."
}

func resultLabel(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}
