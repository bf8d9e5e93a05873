package settings

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	objects map[ObjectKind]map[string]string
}

func (r fakeResolver) Resolve(kind ObjectKind, id string) (string, bool) {
	name, ok := r.objects[kind][id]
	return name, ok
}

func TestParseKeyRoundTrip(t *testing.T) {
	for _, k := range Keys {
		parsed, err := ParseKey(k.String())
		require.NoError(t, err)
		require.Equal(t, k, parsed)
	}
	_, err := ParseKey("nope")
	require.Error(t, err)
}

func TestValidateChecksObjectKind(t *testing.T) {
	r := fakeResolver{objects: map[ObjectKind]map[string]string{
		KindTextChannel: {"100": "announcements"},
		KindCategory:    {"200": "ctf"},
		KindRole:        {"300": "pm"},
	}}

	name, err := Validate(KeyAnnouncementChannel, "100", r)
	require.NoError(t, err)
	require.Equal(t, "announcements", name)

	// A category id is not a text channel.
	_, err = Validate(KeyAnnouncementChannel, "200", r)
	require.Error(t, err)

	_, err = Validate(KeyPMRole, "", r)
	require.Error(t, err)

	name, err = Validate(KeyCTFCategory, "200", r)
	require.NoError(t, err)
	require.Equal(t, "ctf", name)
}

func TestSnapshotWithValue(t *testing.T) {
	var snap Snapshot
	for i, k := range Keys {
		snap = snap.With(k, string(rune('a'+i)))
	}
	for i, k := range Keys {
		require.Equal(t, string(rune('a'+i)), snap.Value(k))
	}
}

func TestStoreSwapIsVisibleToConcurrentReaders(t *testing.T) {
	store := NewStore(Snapshot{AnnouncementChannelID: "1"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				got := store.Current().AnnouncementChannelID
				require.Contains(t, []string{"1", "2"}, got)
			}
		}()
	}
	store.Swap(store.Current().With(KeyAnnouncementChannel, "2"))
	wg.Wait()

	require.Equal(t, "2", store.Current().AnnouncementChannelID)
}
