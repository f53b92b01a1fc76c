package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountFeature(t *testing.T) {
	ids := mustTable(t, texts("user_id", "u1", "u2", "u3"))
	events := mustTable(t,
		NewColumn("user_id", TextColumn, []Cell{TextCell("u2"), TextCell("u1"), TextCell("u1"), MissingCell(), TextCell("u9")}),
		numbers("v", 1, 2, 3, 4, 5),
	)

	t.Run("counts rows per id and keeps every id", func(t *testing.T) {
		counted, err := CountFeature(ids, events, []string{"user_id"}, "n")

		require.NoError(t, err)
		assert.Equal(t, ids.Rows(), counted.Rows())
		assert.Equal(t, 2.0, lookup(t, counted, map[string]string{"user_id": "u1"}, "n").Number)
		assert.Equal(t, 1.0, lookup(t, counted, map[string]string{"user_id": "u2"}, "n").Number)
		assert.False(t, lookup(t, counted, map[string]string{"user_id": "u3"}, "n").Present)
	})

	t.Run("zero-filled counts match the number of event rows", func(t *testing.T) {
		counted, err := CountFeature(ids, events, []string{"user_id"}, "n")
		require.NoError(t, err)
		counted, err = counted.FillMissing("n", NumberCell(0))
		require.NoError(t, err)

		for i := 0; i < counted.Rows(); i++ {
			id, _ := counted.Row(i).Text("user_id")
			want := events.Filter(func(r Row) bool {
				text, ok := r.Text("user_id")
				return ok && text == id
			}).Rows()
			got, _ := counted.Row(i).Number("n")
			assert.Equal(t, float64(want), got, id)
		}
	})

	t.Run("with no events every count is missing", func(t *testing.T) {
		empty := events.Filter(func(Row) bool { return false })

		counted, err := CountFeature(ids, empty, []string{"user_id"}, "n")

		require.NoError(t, err)
		assert.Equal(t, 3, counted.Rows())
		assert.False(t, counted.Row(0).Present("n"))
	})

	t.Run("unknown group key returns error", func(t *testing.T) {
		_, err := CountFeature(ids, events, []string{"merchant_id"}, "n")

		assert.ErrorIs(t, err, ErrUnknownColumn)
	})
}

func TestStatFeature(t *testing.T) {
	ids := mustTable(t, texts("user_id", "u1", "u2", "u3"))

	t.Run("computes every statistic per id", func(t *testing.T) {
		events := mustTable(t,
			texts("user_id", "u1", "u1", "u2", "u1", "u2", "u2"),
			NewColumn("distance", TextColumn, []Cell{TextCell("1"), TextCell("8"), TextCell("2"), TextCell("3"), TextCell("4"), MissingCell()}),
		)

		stats, err := StatFeature(ids, events, []string{"user_id"}, "distance", AllStats, "user")

		require.NoError(t, err)
		assert.Equal(t, []string{"user_id", "user_distance_max", "user_distance_min", "user_distance_mean", "user_distance_median"}, stats.Columns())

		u1 := map[string]string{"user_id": "u1"}
		assert.Equal(t, 8.0, lookup(t, stats, u1, "user_distance_max").Number)
		assert.Equal(t, 1.0, lookup(t, stats, u1, "user_distance_min").Number)
		assert.Equal(t, 4.0, lookup(t, stats, u1, "user_distance_mean").Number)
		assert.Equal(t, 3.0, lookup(t, stats, u1, "user_distance_median").Number)

		u2 := map[string]string{"user_id": "u2"}
		assert.Equal(t, 3.0, lookup(t, stats, u2, "user_distance_median").Number)
		assert.Equal(t, 3.0, lookup(t, stats, u2, "user_distance_mean").Number)

		assert.False(t, lookup(t, stats, map[string]string{"user_id": "u3"}, "user_distance_max").Present)
	})

	t.Run("non-numeric values are fatal", func(t *testing.T) {
		events := mustTable(t, texts("user_id", "u1"), texts("distance", "near"))

		_, err := StatFeature(ids, events, []string{"user_id"}, "distance", AllStats, "user")

		assert.ErrorIs(t, err, ErrNonNumeric)
	})

	t.Run("unknown value column returns error", func(t *testing.T) {
		events := mustTable(t, texts("user_id", "u1"))

		_, err := StatFeature(ids, events, []string{"user_id"}, "distance", AllStats, "user")

		assert.ErrorIs(t, err, ErrUnknownColumn)
	})
}

func TestStatOp(t *testing.T) {
	t.Run("NewStatOp accepts the four statistics", func(t *testing.T) {
		for _, name := range []string{"max", "min", "mean", "median"} {
			op, err := NewStatOp(name)

			require.NoError(t, err)
			assert.Equal(t, name, op.ToString())
		}
	})

	t.Run("NewStatOp rejects anything else", func(t *testing.T) {
		_, err := NewStatOp("sum")

		assert.ErrorIs(t, err, ErrUnknownStatistic)
	})

	t.Run("median of an even count averages the middle pair", func(t *testing.T) {
		assert.Equal(t, 2.5, StatMedian.Apply([]float64{4, 1, 3, 2}))
	})

	t.Run("Apply does not reorder its input", func(t *testing.T) {
		values := []float64{3, 1, 2}

		StatMedian.Apply(values)

		assert.Equal(t, []float64{3, 1, 2}, values)
	})
}
