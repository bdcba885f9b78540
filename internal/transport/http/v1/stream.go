package v1

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamReplay pushes reconstructed slices over a websocket, one message
// per tick, so the dashboard can scrub a replay without polling. The
// stream covers [start, end) with the same downsampling as GetRange and
// closes normally when the range is exhausted.
func (h *Handler) StreamReplay(c echo.Context) error {
	start, err := queryInt64(c, "start", 0)
	if err != nil {
		return writeError(c, err)
	}
	end, err := queryInt64(c, "end", -1)
	if err != nil {
		return writeError(c, err)
	}
	downsample, err := queryInt64(c, "downsample", 1)
	if err != nil {
		return writeError(c, err)
	}
	if downsample < 1 {
		downsample = 1
	}
	runID := c.Param("run_id")

	if end < 0 {
		meta, err := h.service.GetTelemetryMeta(c.Request().Context(), runID)
		if err != nil {
			return writeError(c, err)
		}
		end = meta.TotalTicks
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := c.Request().Context()
	for tick := start; tick < end; tick += downsample {
		slice, err := h.service.GetSlice(ctx, runID, tick)
		if err != nil {
			msg := domain.ErrorResponse{Error: err.Error()}
			if writeErr := conn.WriteJSON(msg); writeErr != nil {
				log.Printf("WARN: replay stream write failed for run %s: %v", runID, writeErr)
			}
			return nil
		}
		if err := conn.WriteJSON(slice); err != nil {
			// Client went away; nothing to clean up.
			return nil
		}
	}
	return conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay complete"))
}
