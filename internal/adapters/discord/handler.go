package discord

import (
	"errors"

	"github.com/rs/zerolog"

	"ctfbot/internal/domain"
	"ctfbot/internal/ports/input"
	"ctfbot/internal/ports/output"
	"ctfbot/internal/settings"
)

// Handler handles Discord interactions using use cases.
type Handler struct {
	events   input.EventUseCase
	settings input.SettingsUseCase
	store    *settings.Store
	tr       output.T
	log      zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(
	events input.EventUseCase,
	settingsUC input.SettingsUseCase,
	store *settings.Store,
	tr output.T,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		events:   events,
		settings: settingsUC,
		store:    store,
		tr:       tr,
		log:      log,
	}
}

func (h *Handler) translate(key string, data map[string]any) string {
	return h.tr.T("", key, data)
}

// errorReply maps a failed operation to a user-facing message. Unexpected
// errors stay in the logs; the user gets a generic reply.
func (h *Handler) errorReply(err error) string {
	switch {
	case errors.Is(err, domain.ErrEventNotFound):
		return h.translate("reply.event_not_found", nil)
	case errors.Is(err, domain.ErrEventLocked):
		return h.translate("reply.event_locked", nil)
	case errors.Is(err, domain.ErrEventGone):
		return h.translate("reply.event_gone", nil)
	case errors.Is(err, domain.ErrChannelLinked):
		return h.translate("reply.channel_linked", nil)
	default:
		return h.translate("reply.internal_error", nil)
	}
}
