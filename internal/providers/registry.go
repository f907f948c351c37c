package providers

import (
	"fmt"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/config"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
)

// Factory constructs adapter instances from configuration. Sessions each
// get their own adapter instance; there is no process-wide gateway client,
// so tests can substitute fakes without touching global state.
type Factory struct {
	cfg *config.Config
}

// NewFactory creates an adapter factory backed by the given configuration
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg}
}

// New builds the adapter for one session. The session ID doubles as the
// gateway-side session name for session-scoped gateways.
func (f *Factory) New(kind models.ProviderKind, sessionID string) (Adapter, error) {
	switch kind {
	case models.ProviderWPP:
		gw := f.cfg.Providers.WPP
		return NewWPPAdapter(
			gw.BaseURL,
			sessionID,
			gw.Token,
			f.cfg.Providers.DefaultCountryCode,
			f.cfg.Providers.RequestTimeout,
		), nil
	case models.ProviderGreen:
		gw := f.cfg.Providers.Green
		return NewGreenAdapter(
			gw.BaseURL,
			gw.InstanceID,
			gw.Token,
			f.cfg.Providers.DefaultCountryCode,
			f.cfg.Providers.RequestTimeout,
		), nil
	}
	return nil, fmt.Errorf("unknown provider kind: %s", kind)
}
