package server

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"careerpath/internal/coverletter"
	"careerpath/internal/errors"
	"careerpath/internal/matching"
	"careerpath/internal/observability"
	"careerpath/internal/types"
)

const tracerName = "careerpath.api"

// createMatchHandler scores a resume against a job description
func (s *Server) createMatchHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.match")
		defer span.End()
		s.counters.match.Add(1)

		var req types.MatchRequest
		if !s.decodeAndValidate(w, r, span, &req) {
			return
		}

		span.SetAttributes(
			attribute.Int("request.resume_length", len(req.Resume)),
			attribute.Int("request.job_length", len(req.JobDescription)),
		)

		analysis := s.analyze(ctx, om, "/match", req.Resume, req.JobDescription)
		span.SetAttributes(attribute.Int("match.score", analysis.Match.Score))

		writeJSONResponse(w, span, http.StatusOK, analysis)
	}
}

// createCoverLetterHandler renders a letter from explicit skills and gaps
func (s *Server) createCoverLetterHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.cover_letter")
		defer span.End()
		s.counters.coverLetter.Add(1)

		var req types.CoverLetterRequest
		if !s.decodeAndValidate(w, r, span, &req) {
			return
		}

		opts, err := s.LetterDefaults.Resolve(req.Tone, req.Words, req.Role, req.Company)
		if err != nil {
			s.writeAppError(w, span, err)
			return
		}

		out, err := types.NewCoverLetterOutput(coverletter.Request{
			Skills:    req.Skills,
			Gaps:      req.Gaps,
			Role:      opts.Role,
			Company:   opts.Company,
			Tone:      opts.Tone,
			WordCount: opts.Words,
		})
		if err != nil {
			s.writeAppError(w, span, err)
			return
		}

		s.recordLetter(ctx, om, span, out)
		writeJSONResponse(w, span, http.StatusOK, out)
	}
}

// createAnalyzeHandler scores the pair and builds the letter from the outcome
func (s *Server) createAnalyzeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.analyze")
		defer span.End()
		s.counters.analyze.Add(1)

		var req types.AnalyzeRequest
		if !s.decodeAndValidate(w, r, span, &req) {
			return
		}

		opts, err := s.LetterDefaults.Resolve(req.Tone, req.Words, req.Role, req.Company)
		if err != nil {
			s.writeAppError(w, span, err)
			return
		}

		analysis := s.analyze(ctx, om, "/analyze", req.Resume, req.JobDescription)

		letter, err := types.NewCoverLetterOutput(
			coverletter.FromAnalysis(analysis, opts.Role, opts.Company, opts.Tone, opts.Words))
		if err != nil {
			s.writeAppError(w, span, err)
			return
		}

		s.recordLetter(ctx, om, span, letter)
		span.SetAttributes(attribute.Int("match.score", analysis.Match.Score))

		writeJSONResponse(w, span, http.StatusOK, types.AnalyzeOutput{Analysis: analysis, Letter: letter})
	}
}

// analyze runs the engine inside an engine.analyze span with match metrics
func (s *Server) analyze(ctx context.Context, om *observability.ObservabilityManager, endpoint, resume, jd string) matching.Analysis {
	var analysis matching.Analysis
	om.GetMetrics().TrackMatch(ctx, om.Tracer(tracerName), endpoint, func(context.Context) int {
		analysis = s.Engine.Analyze(resume, jd)
		return analysis.Match.Score
	})
	return analysis
}

func (s *Server) recordLetter(ctx context.Context, om *observability.ObservabilityManager, span oteltrace.Span, out types.CoverLetterOutput) {
	om.GetMetrics().RecordCoverLetter(ctx, out.Tone.String(), out.Truncated)
	span.SetAttributes(
		attribute.String("letter.tone", out.Tone.String()),
		attribute.Int("letter.words", out.WordCount),
		attribute.Bool("letter.truncated", out.Truncated),
	)
}

type validatable interface {
	Validate() error
}

// decodeAndValidate parses the JSON body into req and runs its struct
// validation, writing a 400 on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, span oteltrace.Span, req validatable) bool {
	if err := parseJSONRequest(r, req); err != nil {
		s.failRequest(span, err, "validation")
		writeErrorResponse(w, "Invalid request body", errors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
		return false
	}
	if err := req.Validate(); err != nil {
		s.failRequest(span, err, "validation")
		writeErrorResponse(w, "Invalid request", errors.ErrCodeInvalidRequest, describeValidationError(err), http.StatusBadRequest)
		return false
	}
	return true
}

// writeAppError maps validation errors to 400 and everything else to 500
func (s *Server) writeAppError(w http.ResponseWriter, span oteltrace.Span, err error) {
	code := ""
	if appErr, ok := errors.As(err); ok {
		code = appErr.Code
	}

	if errors.IsValidation(err) {
		s.failRequest(span, err, "validation")
		writeErrorResponse(w, "Invalid request", code, err.Error(), http.StatusBadRequest)
		return
	}

	s.failRequest(span, err, "internal")
	s.Logger.LogError(err, "Request failed")
	writeErrorResponse(w, "Internal error", code, "the request could not be completed", http.StatusInternalServerError)
}

func (s *Server) failRequest(span oteltrace.Span, err error, kind string) {
	s.counters.failed.Add(1)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.type", kind))
}
