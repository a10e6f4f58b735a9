package gdcard

import (
	"context"

	pkgsync "github.com/agentstation/gdcard/pkg/sync"
)

// Save commits the catalog to the card. Options given here are applied
// after those set with WithSaveOptions.
func (m *Manager) Save(ctx context.Context, opts ...pkgsync.Option) (*pkgsync.Result, error) {
	release, err := m.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	all := append(append([]pkgsync.Option(nil), m.config.saveOptions...), opts...)
	return m.engine.Save(ctx, m.store, all...)
}
