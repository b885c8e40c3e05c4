package broker_test

import (
	"testing"

	"github.com/myrjola/whodunnit/internal/broker"
	"github.com/stretchr/testify/require"
)

func TestUpdateFeed(t *testing.T) {
	type testCase struct {
		name     string
		testFunc func(t *testing.T, f *broker.UpdateFeed[string, string])
	}
	tests := []testCase{
		{
			name: "subscriber receives published payload",
			testFunc: func(t *testing.T, f *broker.UpdateFeed[string, string]) {
				channel, cancel := f.Subscribe("game-1")
				defer cancel()
				f.Publish("game-1", "clue discovered")
				require.Equal(t, "clue discovered", <-channel)
			},
		},
		{
			name: "payloads are scoped to the ID",
			testFunc: func(t *testing.T, f *broker.UpdateFeed[string, string]) {
				channel, cancel := f.Subscribe("game-1")
				defer cancel()
				f.Publish("game-2", "other game's business")
				f.Publish("game-1", "clue discovered")
				require.Equal(t, "clue discovered", <-channel)
			},
		},
		{
			name: "every subscriber receives the broadcast",
			testFunc: func(t *testing.T, f *broker.UpdateFeed[string, string]) {
				first, cancelFirst := f.Subscribe("game-1")
				defer cancelFirst()
				second, cancelSecond := f.Subscribe("game-1")
				defer cancelSecond()
				f.Publish("game-1", "clue discovered")
				require.Equal(t, "clue discovered", <-first)
				require.Equal(t, "clue discovered", <-second)
			},
		},
		{
			name: "cancel closes the subscriber channel",
			testFunc: func(t *testing.T, f *broker.UpdateFeed[string, string]) {
				channel, cancel := f.Subscribe("game-1")
				cancel()
				_, ok := <-channel
				require.False(t, ok, "channel not closed after cancel")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := broker.NewUpdateFeed[string, string]()
			go feed.Start()
			t.Cleanup(feed.Stop)
			tt.testFunc(t, feed)
		})
	}
}
