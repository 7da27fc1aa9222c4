package client

import (
	"context"
	"encoding/json"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/poweron/poweron/pkg/schedule"
	"github.com/poweron/poweron/pkg/types"
)

// SetSchedules asks the helper to run `pmset repeat` with the given records.
// An empty list cancels every repeating event.
func (c *Client) SetSchedules(ctx context.Context, records []schedule.Record) error {
	if records == nil {
		records = []schedule.Record{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to marshal schedules")
	}
	return parseReply(c.Put(ctx, "/schedules", string(payload)))
}

// CancelAllSchedules asks the helper to run `pmset repeat cancel`.
func (c *Client) CancelAllSchedules(ctx context.Context) error {
	return parseReply(c.Delete(ctx, "/schedules"))
}

// GetSchedule returns the output of `pmset -g sched` as seen by the helper.
func (c *Client) GetSchedule(ctx context.Context) (string, error) {
	ret, err := c.Get(ctx, "/schedule")
	if err != nil {
		return "", replyError(ret, err)
	}
	var text string
	if err := json.Unmarshal([]byte(ret), &text); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal schedule")
	}
	return text, nil
}

// GetVersion returns the helper's version.
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	ret, err := c.Get(ctx, "/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}

func parseReply(body string, err error) error {
	if err != nil {
		return replyError(body, err)
	}
	var r types.Reply
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal reply")
	}
	if !r.Success {
		return &ReplyError{Message: r.Error}
	}
	return nil
}

// replyError turns a helper-side failure with a Reply body into a
// *ReplyError. Transport errors are returned as they are.
func replyError(body string, err error) error {
	var se *StatusError
	if !errors.As(err, &se) {
		return err
	}
	var r types.Reply
	if jsonErr := json.Unmarshal([]byte(body), &r); jsonErr != nil || r.Error == "" {
		return err
	}
	return &ReplyError{Code: se.Code, Message: r.Error}
}
