package dataset

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpcpower/internal/columnar"
	apperrors "tpcpower/internal/errors"
	"tpcpower/internal/infrastructure"
	"tpcpower/internal/shared/testutil"
	"tpcpower/pkg/contracts/domain"
)

func newTestLoader() *Loader {
	return NewLoader(infrastructure.DiscardLogger())
}

func TestLoader_TextTimestamps(t *testing.T) {
	dir := t.TempDir()
	path := writeParquet(t, dir, "clean.parquet", textColumns, [][]columnar.Value{
		textRow("2023-05-01 10:00:00", "Nuclear", "Kuosheng#1", "985", "950.5", "north"),
		textRow("2023-05-01 10:10:00", "Nuclear", "Kuosheng#2", "1,234", "abc", ""),
		textRow("not a time", "Coal", "Taichung#1", "550", "500", "central"),
		textRow("", "Coal", "Taichung#2", "550", "500", "central"),
		textRow("2023-05-01 10:20", "Solar", "Changhua", "", "12", "central"),
	})

	table, stats, err := newTestLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, domain.LoadStats{RowsRead: 5, RowsDropped: 2, CapacityCoerced: 1, UsedCoerced: 1}, stats)
	assert.Equal(t, 3, stats.RowsKept())
	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"region"}, table.Columns)

	first := table.Rows[0]
	assert.Equal(t, time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC), first.Time)
	assert.Equal(t, domain.MustParseDate("2023-05-01"), first.Date)
	assert.Equal(t, domain.NewTimeOfDay(10, 0, 0), first.TOD)
	assert.Equal(t, "Nuclear", first.Type)
	assert.Equal(t, "Kuosheng#1", first.Name)
	assert.Equal(t, domain.Float(985), first.Capacity)
	assert.Equal(t, domain.Float(950.5), first.Used)
	assert.Equal(t, map[string]string{"region": "north"}, first.Extra)

	second := table.Rows[1]
	// grouped digits are not a number
	assert.False(t, second.Capacity.Valid)
	assert.False(t, second.Used.Valid)
	assert.Nil(t, second.Extra)

	third := table.Rows[2]
	assert.False(t, third.Capacity.Valid)
	assert.Equal(t, domain.Float(12), third.Used)

	abs, _ := filepath.Abs(path)
	assert.Equal(t, abs, table.Source.Path)
	assert.Positive(t, table.Source.Size)
	assert.False(t, table.Source.ModTime.IsZero())
}

func TestLoader_TypedColumns(t *testing.T) {
	dir := t.TempDir()
	columns := []columnar.Column{
		{Name: "time", Kind: columnar.KindTimestamp, Required: true},
		{Name: "type", Kind: columnar.KindString},
		{Name: "name", Kind: columnar.KindString},
		{Name: "capacity", Kind: columnar.KindDouble},
		{Name: "used", Kind: columnar.KindDouble},
		{Name: "unit_id", Kind: columnar.KindInt64},
	}
	ts := time.Date(2023, 6, 2, 23, 50, 0, 0, time.UTC)
	path := writeParquet(t, dir, "typed.parquet", columns, [][]columnar.Value{
		{columnar.TimeValue(ts), columnar.StringValue("Gas"), columnar.StringValue("Tatan#1"),
			columnar.FloatValue(600), columnar.NullValue(), columnar.IntValue(7)},
	})

	table, stats, err := newTestLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, domain.LoadStats{RowsRead: 1}, stats)
	require.Len(t, table.Rows, 1)

	r := table.Rows[0]
	assert.True(t, ts.Equal(r.Time))
	assert.Equal(t, domain.NewTimeOfDay(23, 50, 0), r.TOD)
	assert.Equal(t, domain.Float(600), r.Capacity)
	assert.False(t, r.Used.Valid)
	v, ok := r.Attr("unit_id")
	assert.True(t, ok)
	assert.Equal(t, "7", v)
	assert.Equal(t, domain.KindInt, table.KindOf("unit_id"))
	assert.Equal(t, map[string]domain.ColumnKind{"unit_id": domain.KindInt}, table.Kinds)
}

func TestLoader_EpochMillisTime(t *testing.T) {
	dir := t.TempDir()
	columns := []columnar.Column{
		{Name: "time", Kind: columnar.KindInt64},
		{Name: "type", Kind: columnar.KindString},
		{Name: "name", Kind: columnar.KindString},
	}
	ts := time.Date(2023, 1, 1, 0, 10, 0, 0, time.UTC)
	path := writeParquet(t, dir, "epoch.parquet", columns, [][]columnar.Value{
		{columnar.IntValue(ts.UnixMilli()), columnar.StringValue("Wind"), columnar.StringValue("Offshore")},
	})

	table, _, err := newTestLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.True(t, ts.Equal(table.Rows[0].Time))
	assert.False(t, table.Rows[0].Capacity.Valid, "absent measure column is missing")
}

func TestLoader_CustomLayouts(t *testing.T) {
	dir := t.TempDir()
	path := writeParquet(t, dir, "layout.parquet", textColumns, [][]columnar.Value{
		textRow("01/05/2023 10:30", "Hydro", "Mingtan", "1", "1", ""),
	})

	_, stats, err := newTestLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RowsDropped)

	loader := NewLoader(infrastructure.DiscardLogger(), WithTimeLayouts([]string{"02/01/2006 15:04"}))
	table, stats, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, stats.RowsDropped)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, time.Date(2023, 5, 1, 10, 30, 0, 0, time.UTC), table.Rows[0].Time)
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()

	notParquet := filepath.Join(dir, "clean.parquet")
	writeFile(t, notParquet, "time,type,name\n2023-05-01 10:00,Coal,A\n")

	noName := writeParquet(t, dir, "noname.parquet", []columnar.Column{
		{Name: "time", Kind: columnar.KindString},
		{Name: "type", Kind: columnar.KindString},
	}, nil)

	boolTime := writeParquet(t, dir, "booltime.parquet", []columnar.Column{
		{Name: "time", Kind: columnar.KindBool},
		{Name: "type", Kind: columnar.KindString},
		{Name: "name", Kind: columnar.KindString},
	}, nil)

	tests := []struct {
		name     string
		path     string
		wantType apperrors.ErrorType
	}{
		{"missing file", filepath.Join(dir, "absent.parquet"), apperrors.ErrTypeStorage},
		{"directory", dir, apperrors.ErrTypeStorage},
		{"not parquet", notParquet, apperrors.ErrTypeParsing},
		{"missing required column", noName, apperrors.ErrTypeParsing},
		{"unsupported time encoding", boolTime, apperrors.ErrTypeParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, _, err := newTestLoader().Load(context.Background(), tt.path)
			require.Error(t, err)
			assert.Nil(t, table)
			assert.True(t, errors.Is(err, ErrLoad))

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantType, appErr.Type)
		})
	}
}

func TestLoader_EmptyDataset(t *testing.T) {
	path := writeParquet(t, t.TempDir(), "empty.parquet", textColumns, nil)

	table, stats, err := newTestLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, table.Len())
	assert.Equal(t, domain.LoadStats{}, stats)
}

func TestLoader_CancelledContext(t *testing.T) {
	rows := make([][]columnar.Value, cancelCheckInterval+1)
	for i := range rows {
		rows[i] = textRow("2023-05-01 10:00", "Coal", "A", "1", "1", "")
	}
	path := writeParquet(t, t.TempDir(), "big.parquet", textColumns, rows)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newTestLoader().Load(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_LogsDataQuality(t *testing.T) {
	logger, rec := testutil.NewTestLogger(t)
	path := writeParquet(t, t.TempDir(), "clean.parquet", textColumns, [][]columnar.Value{
		textRow("2023-05-01 10:00:00", "Nuclear", "Kuosheng#1", "985", "n/a", "north"),
		textRow("yesterday", "Coal", "Taichung#1", "550", "500", "central"),
	})

	_, _, err := NewLoader(logger).Load(context.Background(), path)
	require.NoError(t, err)

	testutil.AssertLogged(t, rec, slog.LevelWarn, "Dropping row with unusable timestamp")
	summary := testutil.AssertLogged(t, rec, slog.LevelWarn, "Dataset loaded")
	assert.Equal(t, int64(1), summary.Attrs["rows_dropped"])
	assert.Equal(t, int64(1), summary.Attrs["rows_kept"])
	testutil.AssertNoErrors(t, rec)
}
