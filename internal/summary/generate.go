package summary

import (
	"context"
	stderrors "errors"
	"log"
	"strings"
	"time"

	"github.com/heartsync/heartsync/internal/errors"
)

// Generate validates req, builds the prompt and asks c for the summary.
// Any completion failure or an empty reply is SUMMARY_UNAVAILABLE. If ctx
// was canceled, ctx.Err() is returned unchanged.
func Generate(ctx context.Context, c Completer, req Request, asOf time.Time, loc *time.Location, opts Options) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errors.NewSummaryUnavailable("no completion service configured (set OPENAI_API_KEY)")
	}
	opts = opts.withDefaults()

	facts := DeriveFacts(req, asOf, loc)
	prompt := BuildPrompt(req, facts, opts)

	text, err := c.Complete(ctx, prompt, opts.MaxOutputTokens)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, unavailable(err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewSummaryUnavailable("the completion service returned an empty summary")
	}
	return &Response{Summary: text}, nil
}

func unavailable(err error) *errors.HeartError {
	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		he := errors.NewSummaryUnavailable("summary unavailable: " + statusErr.Error())
		he.Details = map[string]any{"status": statusErr.StatusCode}
		return he
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewSummaryUnavailable("summary unavailable: the completion service timed out")
	}
	log.Printf("summary: completion failed: %v", err)
	return errors.NewSummaryUnavailable("summary unavailable: could not reach the completion service")
}
