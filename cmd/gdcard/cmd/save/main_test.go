package save

import (
	"testing"

	"github.com/agentstation/gdcard/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.SetDefault(*logging.NewNopLogger())
	m.Run()
}
