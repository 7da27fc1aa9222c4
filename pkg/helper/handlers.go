package helper

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/poweron/poweron/pkg/pmset"
	"github.com/poweron/poweron/pkg/schedule"
	"github.com/poweron/poweron/pkg/types"
	"github.com/poweron/poweron/pkg/version"
)

// recordBody is a schedule.Record as it arrives on the wire. A key that is
// absent decodes to nil, unlike an empty string.
type recordBody struct {
	Type *string `json:"type"`
	Days *string `json:"days"`
	Time *string `json:"time"`
}

// decodeRecords rejects bodies where any record lacks one of its keys.
// Present but empty values are kept and skipped later by RepeatArgs.
func decodeRecords(c *gin.Context) ([]schedule.Record, error) {
	var body []recordBody
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, err
	}

	records := make([]schedule.Record, 0, len(body))
	for i, r := range body {
		if r.Type == nil || r.Days == nil || r.Time == nil {
			return nil, fmt.Errorf("record %d: %w", i, schedule.ErrInvalidRecord)
		}
		records = append(records, schedule.Record{Type: *r.Type, Days: *r.Days, Time: *r.Time})
	}
	return records, nil
}

func (s *Server) setSchedules(c *gin.Context) {
	records, err := decodeRecords(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err, schedule.ErrInvalidRecord.Error())
		return
	}

	args, err := schedule.RepeatArgs(records)
	if err != nil {
		fail(c, http.StatusBadRequest, err, err.Error())
		return
	}

	if err := s.runner().Repeat(c.Request.Context(), args); err != nil {
		fail(c, http.StatusInternalServerError, err, pmsetMessage(err))
		return
	}

	logrus.WithField("args", args).Infof("schedules set")
	c.JSON(http.StatusCreated, types.Reply{Success: true})
}

func (s *Server) cancelSchedules(c *gin.Context) {
	if err := s.runner().Repeat(c.Request.Context(), schedule.CancelArgs()); err != nil {
		fail(c, http.StatusInternalServerError, err, pmsetMessage(err))
		return
	}

	logrus.Infof("schedules cancelled")
	c.JSON(http.StatusCreated, types.Reply{Success: true})
}

func (s *Server) getSchedule(c *gin.Context) {
	out, err := s.runner().Status(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err, pmsetMessage(err))
		return
	}

	if strings.TrimSpace(out) == "" {
		out = types.NoScheduledEvents
	}
	c.JSON(http.StatusOK, out)
}

func getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.Version)
}

// pmsetMessage is what the client sees when pmset fails: its own error
// output when it printed any.
func pmsetMessage(err error) string {
	var exitErr *pmset.ExitError
	if errors.As(err, &exitErr) {
		if msg := strings.TrimSpace(exitErr.Stderr); msg != "" {
			return msg
		}
		return "Unknown error"
	}
	return err.Error()
}
