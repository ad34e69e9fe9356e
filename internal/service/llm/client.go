// Package llm defines the model client contract and the error-as-text
// wrapper used by every caller that shows model output to a user.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ai-offline-assistant/internal/observability/logging"
	"ai-offline-assistant/internal/observability/metrics"
)

// ErrorMarker prefixes every answer that reports a failed model call.
const ErrorMarker = "❌ API Error:"

// Client generates a completion for a single prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Backend, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Backend, e.StatusCode, e.Body)
}

// ErrorText formats err the way a failed answer is shown.
func ErrorText(err error) string {
	return ErrorMarker + " " + err.Error()
}

// Ask calls the model and never fails: any error becomes an answer string
// starting with ErrorMarker.
func Ask(ctx context.Context, c Client, prompt string) string {
	answer, _ := AskWithError(ctx, c, prompt)
	return answer
}

// AskWithError behaves like Ask and also returns the underlying error so
// callers can tag the outcome.
func AskWithError(ctx context.Context, c Client, prompt string) (string, error) {
	logger := logging.WithComponent("llm")
	start := time.Now()

	answer, err := c.Generate(ctx, prompt)
	metrics.DefaultMetrics.RecordModelCall(c.Name(), err, time.Since(start).Seconds())
	metrics.DefaultMetrics.RecordPrompt(len(prompt))

	if err != nil {
		logCall(logger.Warn(), c, prompt, start).Err(err).Msg("Model call failed")
		return ErrorText(err), err
	}

	logCall(logger.Debug(), c, prompt, start).Int("answerChars", len(answer)).Msg("Model call completed")
	return answer, nil
}

func logCall(e *zerolog.Event, c Client, prompt string, start time.Time) *zerolog.Event {
	return e.Str("provider", c.Name()).
		Int("promptChars", len(prompt)).
		Dur("latency", time.Since(start))
}
