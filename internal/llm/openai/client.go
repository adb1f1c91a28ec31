package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/protocol-extractor/internal/common"
	"github.com/joseph-ayodele/protocol-extractor/internal/llm"
)

var _ llm.Querier = (*Client)(nil)

// Query implements llm.Querier against chat/completions.
// Every failure is logged and reported as llm.QueryFailed.
func (c *Client) Query(ctx context.Context, prompt, system string) string {
	rid := uuid.New().String()
	ctx = common.WithRequestID(ctx, rid)
	start := time.Now()

	if strings.TrimSpace(system) == "" {
		system = llm.DefaultSystemPrompt
	}

	c.logger.Debug("llm.query.start",
		"req_id", rid,
		"run_id", common.RunIDFromContext(ctx),
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_len", len(prompt),
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
	}

	content, err := c.complete(ctx, rid, body)
	if err != nil {
		c.logger.Error("llm.query.failed",
			"req_id", rid,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.QueryFailed
	}

	c.logger.Info("llm.query.ok",
		"req_id", rid,
		"answer_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content
}

func (c *Client) complete(ctx context.Context, rid string, body map[string]any) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	var content string
	err := retryDo(ctx, c.cfg.Retry, func(attempt int) error {
		raw, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
		if err != nil {
			var se *llm.StatusError
			if errors.As(err, &se) && !se.Retryable() {
				return permanent(fmt.Errorf("openai status %d: %s", se.Status, llm.Truncate(se.Body, 512)))
			}
			return err
		}

		var cc struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(raw, &cc); err != nil {
			return permanent(fmt.Errorf("decode openai response: %w", err))
		}
		if len(cc.Choices) == 0 {
			return permanent(errors.New("no choices in openai response"))
		}
		content = strings.TrimSpace(cc.Choices[0].Message.Content)
		return nil
	}, func(attempt int, err error, next time.Duration) {
		c.logger.Warn("llm.query.retry",
			"req_id", rid,
			"attempt", attempt,
			"error", err,
			"next_delay_ms", next.Milliseconds(),
		)
	})
	return content, err
}
