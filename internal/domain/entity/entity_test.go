package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name       string
		n          int
		size       int
		wantChunks int
		wantLast   int
	}{
		{name: "empty", n: 0, size: 50, wantChunks: 0},
		{name: "less than one batch", n: 7, size: 50, wantChunks: 1, wantLast: 7},
		{name: "exact batch", n: 50, size: 50, wantChunks: 1, wantLast: 50},
		{name: "one over", n: 51, size: 50, wantChunks: 2, wantLast: 1},
		{name: "many", n: 149, size: 50, wantChunks: 3, wantLast: 49},
		{name: "zero size falls back to default", n: 120, size: 0, wantChunks: 3, wantLast: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.n)
			for i := range items {
				items[i] = i
			}

			chunks := Chunk(items, tt.size)

			require.Len(t, chunks, tt.wantChunks)
			if tt.wantChunks == 0 {
				return
			}
			assert.Len(t, chunks[len(chunks)-1], tt.wantLast)

			total := 0
			for _, c := range chunks {
				for _, v := range c {
					assert.Equal(t, total, v)
					total++
				}
			}
			assert.Equal(t, tt.n, total)
		})
	}
}

func TestChunk_AppendDoesNotLeak(t *testing.T) {
	items := []int{1, 2, 3, 4}
	chunks := Chunk(items, 2)

	_ = append(chunks[0], 99)

	assert.Equal(t, []int{1, 2, 3, 4}, items)
}

func TestMintID(t *testing.T) {
	a := MintID("user-1", "device-1", KindPlayer, 1)

	_, err := uuid.Parse(a)
	require.NoError(t, err)

	assert.Equal(t, a, MintID("user-1", "device-1", KindPlayer, 1))
	assert.NotEqual(t, a, MintID("user-1", "device-1", KindPlayer, 2))
	assert.NotEqual(t, a, MintID("user-1", "device-1", KindVenue, 1))
	assert.NotEqual(t, a, MintID("user-2", "device-1", KindPlayer, 1))
	assert.NotEqual(t, a, MintID("user-1", "device-2", KindPlayer, 1))
}

func TestKind(t *testing.T) {
	assert.Equal(t, []Kind{KindPlayer, KindVenue, KindMatch, KindGame, KindRallyAnalysis}, Kinds)

	assert.True(t, KindPlayer.HasDependents())
	assert.True(t, KindVenue.HasDependents())
	assert.True(t, KindMatch.HasDependents())
	assert.False(t, KindGame.HasDependents())
	assert.False(t, KindRallyAnalysis.HasDependents())

	assert.NoError(t, KindGame.Validate())
	assert.Error(t, Kind("friends").Validate())
}

func TestMatchResult_Validate(t *testing.T) {
	assert.NoError(t, ResultWin.Validate())
	assert.NoError(t, ResultLoss.Validate())
	assert.Error(t, MatchResult("draw").Validate())
}

func TestMatchRoundTrip(t *testing.T) {
	energy := 2
	venue := int64(4)
	created := time.UnixMilli(1700000000000)
	local := Match{
		ID:            7,
		OpponentID:    3,
		VenueID:       &venue,
		Date:          "2024-05-01",
		Format:        "best_of_3",
		UserScore:     2,
		OpponentScore: 1,
		Result:        ResultWin,
		EnergyLevel:   &energy,
		Tags:          []string{"league"},
		CreatedAt:     created,
		Dirty:         true,
	}

	row := MatchToRow(local, "match-uuid", "user-1", "player-uuid", "")

	assert.Equal(t, "player-uuid", row.OpponentID)
	assert.Nil(t, row.VenueID)
	assert.Nil(t, row.Note)
	assert.Nil(t, row.PhotoURL)
	assert.Equal(t, int64(1700000000000), row.LastModifiedMs)

	var pulled Match
	ApplyMatchRow(&pulled, row, 3, nil)

	assert.Equal(t, "match-uuid", pulled.RemoteID)
	assert.Equal(t, int64(3), pulled.OpponentID)
	assert.Nil(t, pulled.VenueID)
	assert.Equal(t, local.Date, pulled.Date)
	assert.Equal(t, local.Result, pulled.Result)
	assert.Equal(t, &energy, pulled.EnergyLevel)
	assert.Equal(t, created, pulled.CreatedAt)
	assert.False(t, pulled.Dirty)
}

func TestChangeSet_Len(t *testing.T) {
	cs := ChangeSet{
		Players: []PlayerRow{{ID: "a"}, {ID: "b"}},
		Games:   []GameRow{{ID: "c"}},
	}

	assert.Equal(t, 3, cs.Len())
	assert.Equal(t, 2, cs.Count(KindPlayer))
	assert.Equal(t, 0, cs.Count(KindMatch))

	var res UpsertResult
	res.Append(KindGame, "c")
	assert.Equal(t, []string{"c"}, res.IDs(KindGame))
	assert.Nil(t, (*UpsertResult)(nil).IDs(KindGame))
}
