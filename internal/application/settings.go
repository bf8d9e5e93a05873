package application

import (
	"context"
	"fmt"

	"ctfbot/internal/ports/output"
	"ctfbot/internal/settings"
)

// SettingsService updates guild settings: validate the value against the
// key's object kind, persist it, then swap the cached snapshot in one step.
type SettingsService struct {
	repo     output.SettingsRepository
	store    *settings.Store
	resolver settings.Resolver
}

func NewSettingsService(repo output.SettingsRepository, store *settings.Store, resolver settings.Resolver) *SettingsService {
	return &SettingsService{repo: repo, store: store, resolver: resolver}
}

// Update validates and persists value for key and returns the resolved
// Discord object name.
func (s *SettingsService) Update(ctx context.Context, key settings.Key, value string) (string, error) {
	name, err := settings.Validate(key, value, s.resolver)
	if err != nil {
		return "", err
	}
	if err := s.repo.Save(ctx, key, value); err != nil {
		return "", fmt.Errorf("persist setting: %w", err)
	}
	s.store.Swap(s.store.Current().With(key, value))
	return name, nil
}

// Describe reports every setting with its current value and whether that
// value still points at a live Discord object.
func (s *SettingsService) Describe(ctx context.Context) []settings.Status {
	snap := s.store.Current()
	out := make([]settings.Status, 0, len(settings.Keys))
	for _, key := range settings.Keys {
		st := settings.Status{
			Key:         key,
			Description: key.Description(),
			Value:       snap.Value(key),
		}
		if st.Value != "" {
			st.Name, st.OK = s.resolver.Resolve(key.Kind(), st.Value)
		}
		out = append(out, st)
	}
	return out
}
