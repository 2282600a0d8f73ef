// Package auth provides the config-driven AuthManager used when audits need
// basic credentials, fixed headers, or a previously captured session.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
	"github.com/sightline9/a11y-cli/internal/config"
)

// StaticManager satisfies schemas.AuthManager from static configuration.
// Interactive login flows live behind the same contract elsewhere; audits
// driven from config only need this.
type StaticManager struct {
	cfg    config.AuthConfig
	logger *zap.Logger
	state  *schemas.StorageState
}

// NewStaticManager loads the optional storage-state file eagerly so a broken
// session file fails the run before any browser work starts.
func NewStaticManager(cfg config.AuthConfig, logger *zap.Logger) (*StaticManager, error) {
	m := &StaticManager{cfg: cfg, logger: logger.Named("auth")}

	if cfg.StorageStateFile != "" {
		raw, err := os.ReadFile(cfg.StorageStateFile)
		if err != nil {
			return nil, fmt.Errorf("reading storage state: %w", err)
		}
		var state schemas.StorageState
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, fmt.Errorf("decoding storage state: %w", err)
		}
		m.state = &state
		m.logger.Info("Loaded storage state", zap.Int("cookies", len(state.Cookies)))
	}

	return m, nil
}

func (m *StaticManager) RequiresAuth() bool {
	return m.cfg.Enabled
}

// Authenticate is a no-op for static material: the session either restores
// from the captured state or the credentials ride along on every request.
func (m *StaticManager) Authenticate(ctx context.Context) schemas.AuthResult {
	if !m.cfg.Enabled {
		return schemas.AuthResult{Success: true}
	}
	if m.state == nil && m.cfg.Username == "" && len(m.cfg.Headers) == 0 {
		return schemas.AuthResult{Success: false, Error: "auth enabled but no credentials, headers or storage state configured"}
	}
	return schemas.AuthResult{Success: true}
}

func (m *StaticManager) StorageState() *schemas.StorageState {
	return m.state
}

func (m *StaticManager) HTTPCredentials() *schemas.HTTPCredentials {
	if m.cfg.Username == "" {
		return nil
	}
	return &schemas.HTTPCredentials{Username: m.cfg.Username, Password: m.cfg.Password}
}

func (m *StaticManager) Headers() map[string]string {
	return m.cfg.Headers
}
