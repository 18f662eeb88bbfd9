package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tpcpower/internal/dataprocessing"
	apierrors "tpcpower/internal/errors"
	"tpcpower/internal/infrastructure"
	mw "tpcpower/internal/middleware"
	api "tpcpower/pkg/contracts/api/v1"
	"tpcpower/pkg/contracts/domain"
	"tpcpower/pkg/contracts/events"
)

func at(s string) time.Time {
	ts, err := time.Parse(domain.TimestampLayout, s)
	if err != nil {
		panic(err)
	}
	return ts
}

func sampleTable() *domain.Table {
	return &domain.Table{
		Rows: []domain.Reading{
			domain.NewReading(at("2024-01-01 10:00:00"), "solar", "A", domain.Float(10), domain.Float(5)),
			domain.NewReading(at("2024-01-01 10:00:00"), "wind", "C", domain.Float(7), domain.Float(3)),
			domain.NewReading(at("2024-01-02 11:00:00"), "wind", "C", domain.Missing(), domain.Missing()),
		},
	}
}

// tableRunner resolves requests against a fixed table
type tableRunner struct {
	table    *domain.Table
	pipeline *dataprocessing.Pipeline
	err      error
}

func newTableRunner(table *domain.Table) *tableRunner {
	return &tableRunner{
		table:    table,
		pipeline: dataprocessing.NewPipeline(infrastructure.DiscardLogger(), infrastructure.NewNoopMetrics()),
	}
}

func (r *tableRunner) Run(ctx context.Context, req api.QueryRequest) (*dataprocessing.Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	criteria, err := req.Criteria(domain.DefaultCriteria(r.table))
	if err != nil {
		return nil, apierrors.NewAppValidationError(err.Error())
	}
	return r.pipeline.Run(ctx, r.table, criteria)
}

// received is a decoded server message
type received struct {
	ID      string             `json:"id"`
	Type    events.MessageType `json:"type"`
	ReplyTo string             `json:"reply_to"`
	TraceID string             `json:"trace_id"`
	Data    json.RawMessage    `json:"data"`
}

type resultData struct {
	TotalRows int `json:"total_rows"`
	Series    []struct {
		Time        time.Time `json:"time"`
		CapacitySum *float64  `json:"capacity_sum"`
		UsedSum     *float64  `json:"used_sum"`
	} `json:"series"`
}

func decode(t *testing.T, raw []byte) received {
	t.Helper()
	var msg received
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func decodeData(t *testing.T, msg received, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(msg.Data, dst))
}

func newTestClient(hub *Hub, conn Connection, runner QueryRunner) *Client {
	return NewClient(hub, conn, runner, mw.NewRequestValidator(), Options{
		PingPeriod:     time.Hour,
		PongWait:       2 * time.Hour,
		MaxMessageSize: 1024,
	}, "trace-1", infrastructure.DiscardLogger())
}
